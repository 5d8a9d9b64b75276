// Package dynamo stores constitutions in DynamoDB. Songs are embedded in the
// constitution item, votes live in their own table keyed by constitution.
package dynamo

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// API is the subset of the DynamoDB client used by Store
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Tables names the tables used by Store
type Tables struct {
	Constitutions string
	Votes         string
	History       string
	Users         string
	Settings      string
}

// TablesWithPrefix returns the default table names behind prefix
func TablesWithPrefix(prefix string) Tables {
	return Tables{
		Constitutions: prefix + "constitutions",
		Votes:         prefix + "votes",
		History:       prefix + "history",
		Users:         prefix + "users",
		Settings:      prefix + "settings",
	}
}

// Options configures NewFromConfig
type Options struct {
	Region      string
	Endpoint    string // local endpoint such as dynamodb-local, empty for AWS
	TablePrefix string
}

// Store implements repository.FullRepository on DynamoDB
type Store struct {
	client API
	tables Tables
	log    logger.Logger

	// batchConcurrency bounds parallel BatchWriteItem calls during cleanup
	batchConcurrency int
}

var _ repository.FullRepository = (*Store)(nil)

// New creates a Store on an existing client
func New(client API, tables Tables, log logger.Logger) *Store {
	return &Store{
		client:           client,
		tables:           tables,
		log:              log,
		batchConcurrency: 4,
	}
}

// NewFromConfig loads the default AWS configuration and creates a Store
func NewFromConfig(ctx context.Context, opts Options, log logger.Logger) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return New(client, TablesWithPrefix(opts.TablePrefix), log), nil
}

// Ping checks that the constitutions table is reachable
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tables.Constitutions),
	})
	return err
}

// Close is a no-op; the SDK client holds no connections that need releasing
func (s *Store) Close() error {
	return nil
}

func pkKey(value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: value},
	}
}

// isConditionFailed reports whether err is a failed condition expression,
// either on a single write or inside a cancelled transaction
func isConditionFailed(err error) bool {
	var cce *types.ConditionalCheckFailedException
	if stderrors.As(err, &cce) {
		return true
	}
	var tce *types.TransactionCanceledException
	if stderrors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// conditionFailedAt reports whether the transaction item at index failed its condition
func conditionFailedAt(err error, index int) bool {
	var tce *types.TransactionCanceledException
	if !stderrors.As(err, &tce) || index >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[index].Code) == "ConditionalCheckFailed"
}
