package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/moviediary/watchlog/internal/config"
)

// S3API is the subset of the S3 client the mirror uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client the mirror uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSMirror copies snapshot bodies to S3 and indexes them in DynamoDB.
// Either half may be disabled by leaving its client nil.
type AWSMirror struct {
	s3Client  S3API
	dynamoDB  DynamoAPI
	bucket    string
	prefix    string
	tableName string
}

// manifestItem is how a Manifest is stored in DynamoDB.
type manifestItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	Manifest
}

// NewAWSMirror builds a mirror from cfg, or returns nil when neither a
// bucket nor a table is configured.
func NewAWSMirror(ctx context.Context, cfg config.BackupConfig) (*AWSMirror, error) {
	if cfg.S3Bucket == "" && cfg.DynamoDBTable == "" {
		return nil, nil
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile())
	if err != nil {
		return nil, err
	}

	m := &AWSMirror{bucket: cfg.S3Bucket, prefix: cfg.S3Prefix, tableName: cfg.DynamoDBTable}
	if cfg.S3Bucket != "" {
		m.s3Client = s3.NewFromConfig(awsCfg)
	}
	if cfg.DynamoDBTable != "" {
		m.dynamoDB = dynamodb.NewFromConfig(awsCfg)
	}
	return m, nil
}

// NewAWSMirrorWithClients wires a mirror around existing clients.
func NewAWSMirrorWithClients(s3Client S3API, dynamoDB DynamoAPI, bucket, prefix, tableName string) *AWSMirror {
	return &AWSMirror{s3Client: s3Client, dynamoDB: dynamoDB, bucket: bucket, prefix: prefix, tableName: tableName}
}

// LoadAWSConfig loads the default AWS config for region. A non-empty
// profile selects a shared-config profile; static keys in
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY are picked up by the default
// chain, and WATCHLOG_AWS_ACCESS_KEY_ID/WATCHLOG_AWS_SECRET_ACCESS_KEY
// override it for CI.
func LoadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if key, secret := os.Getenv("WATCHLOG_AWS_ACCESS_KEY_ID"), os.Getenv("WATCHLOG_AWS_SECRET_ACCESS_KEY"); key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("WATCHLOG_AWS_SESSION_TOKEN")),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

func (m *AWSMirror) key(file string) string {
	return strings.TrimSuffix(m.prefix, "/") + "/" + file
}

// manifestSortKey orders manifests by time, then by sequence within a second.
func manifestSortKey(man *Manifest) string {
	if man.Seq <= 1 {
		return man.Timestamp
	}
	return fmt.Sprintf("%s#%03d", man.Timestamp, man.Seq)
}

// Put implements Mirror. A nil mirror accepts and drops everything.
func (m *AWSMirror) Put(ctx context.Context, man *Manifest, body []byte) error {
	if m == nil {
		return nil
	}
	if m.s3Client != nil {
		key := m.key(man.File)
		_, err := m.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
			Metadata: map[string]string{
				"run-id": man.RunID,
				"items":  fmt.Sprint(man.Counts.Total),
			},
		})
		if err != nil {
			return fmt.Errorf("putting object to S3: %w", err)
		}
		man.S3Key = key
	}

	if m.dynamoDB != nil {
		av, err := attributevalue.MarshalMap(manifestItem{
			PK:       "BACKUP#" + man.EntryID,
			SK:       manifestSortKey(man),
			Manifest: *man,
		})
		if err != nil {
			return fmt.Errorf("marshaling manifest: %w", err)
		}
		_, err = m.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(m.tableName),
			Item:      av,
		})
		if err != nil {
			return fmt.Errorf("putting manifest to DynamoDB: %w", err)
		}
	}
	return nil
}

// Manifests returns the newest limit manifests for entryID, newest first.
func (m *AWSMirror) Manifests(ctx context.Context, entryID string, limit int32) ([]Manifest, error) {
	if m == nil || m.dynamoDB == nil {
		return nil, nil
	}
	result, err := m.dynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(m.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "BACKUP#" + entryID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	out := make([]Manifest, 0, len(result.Items))
	for _, item := range result.Items {
		var mi manifestItem
		if err := attributevalue.UnmarshalMap(item, &mi); err != nil {
			continue
		}
		out = append(out, mi.Manifest)
	}
	return out, nil
}

// Fetch downloads a mirrored snapshot body by S3 key.
func (m *AWSMirror) Fetch(ctx context.Context, key string) ([]byte, error) {
	if m == nil || m.s3Client == nil {
		return nil, fmt.Errorf("no S3 bucket configured")
	}
	out, err := m.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
