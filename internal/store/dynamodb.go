package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/planttracer/odb/internal/types"
)

const (
	attrKey         = "pk"
	attrVersion     = "version"
	attrBody        = "body"
	attrIndexPrefix = "ix_"

	// tableReadyTimeout bounds the wait for a newly created table.
	tableReadyTimeout = 2 * time.Minute
)

// DynamoDBBackend stores each table as a DynamoDB table keyed by pk, with one
// global secondary index "<index>-index" per declared index.
//
// Global secondary indexes are eventually consistent, so Query may briefly
// miss a freshly written item. Get and Scan use consistent reads.
type DynamoDBBackend struct {
	client   *dynamodb.Client
	pageSize int32
}

// NewDynamoDBBackend wraps client.
func NewDynamoDBBackend(client *dynamodb.Client) *DynamoDBBackend {
	return &DynamoDBBackend{client: client, pageSize: DefaultScanPageSize}
}

func (b *DynamoDBBackend) Name() string {
	return "dynamodb"
}

func (b *DynamoDBBackend) Ping(ctx context.Context) error {
	_, err := b.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err
}

func gsiName(index string) string {
	return index + "-index"
}

// EnsureTables creates missing tables and waits for them to become active.
// Indexes added to a table that already exists are not backfilled.
func (b *DynamoDBBackend) EnsureTables(ctx context.Context, specs []TableSpec) error {
	waiter := dynamodb.NewTableExistsWaiter(b.client)
	for _, spec := range specs {
		_, err := b.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)})
		if err == nil {
			continue
		}
		var missing *ddbtypes.ResourceNotFoundException
		if !errors.As(err, &missing) {
			return fmt.Errorf("failed to describe %s: %w", spec.Name, err)
		}

		input := &dynamodb.CreateTableInput{
			TableName:   aws.String(spec.Name),
			BillingMode: ddbtypes.BillingModePayPerRequest,
			AttributeDefinitions: []ddbtypes.AttributeDefinition{
				{AttributeName: aws.String(attrKey), AttributeType: ddbtypes.ScalarAttributeTypeS},
			},
			KeySchema: []ddbtypes.KeySchemaElement{
				{AttributeName: aws.String(attrKey), KeyType: ddbtypes.KeyTypeHash},
			},
		}
		for _, index := range spec.Indexes {
			input.AttributeDefinitions = append(input.AttributeDefinitions, ddbtypes.AttributeDefinition{
				AttributeName: aws.String(attrIndexPrefix + index),
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			})
			input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, ddbtypes.GlobalSecondaryIndex{
				IndexName: aws.String(gsiName(index)),
				KeySchema: []ddbtypes.KeySchemaElement{
					{AttributeName: aws.String(attrIndexPrefix + index), KeyType: ddbtypes.KeyTypeHash},
				},
				Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
			})
		}

		if _, err := b.client.CreateTable(ctx, input); err != nil {
			var inUse *ddbtypes.ResourceInUseException
			if !errors.As(err, &inUse) {
				return fmt.Errorf("failed to create %s: %w", spec.Name, err)
			}
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, tableReadyTimeout); err != nil {
			return fmt.Errorf("table %s did not become ready: %w", spec.Name, err)
		}
	}
	return nil
}

func toAttributes(item Item) map[string]ddbtypes.AttributeValue {
	attrs := map[string]ddbtypes.AttributeValue{
		attrKey:     &ddbtypes.AttributeValueMemberS{Value: item.Key},
		attrVersion: &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(item.Version, 10)},
		attrBody:    &ddbtypes.AttributeValueMemberS{Value: string(item.Body)},
	}
	for name, value := range item.Indexes {
		attrs[attrIndexPrefix+name] = &ddbtypes.AttributeValueMemberS{Value: value}
	}
	return attrs
}

func fromAttributes(attrs map[string]ddbtypes.AttributeValue) (Item, error) {
	var item Item
	item.Indexes = make(map[string]string)
	for name, av := range attrs {
		switch v := av.(type) {
		case *ddbtypes.AttributeValueMemberS:
			switch {
			case name == attrKey:
				item.Key = v.Value
			case name == attrBody:
				item.Body = []byte(v.Value)
			case strings.HasPrefix(name, attrIndexPrefix):
				item.Indexes[strings.TrimPrefix(name, attrIndexPrefix)] = v.Value
			}
		case *ddbtypes.AttributeValueMemberN:
			if name == attrVersion {
				n, err := strconv.ParseInt(v.Value, 10, 64)
				if err != nil {
					return Item{}, fmt.Errorf("bad version attribute: %w", err)
				}
				item.Version = n
			}
		}
	}
	if item.Key == "" {
		return Item{}, errors.New("item has no key attribute")
	}
	return item, nil
}

func isConditionFailed(err error) bool {
	var ccf *ddbtypes.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (b *DynamoDBBackend) Put(ctx context.Context, table string, item Item, requireAbsent bool) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      toAttributes(item),
	}
	if requireAbsent {
		input.ConditionExpression = aws.String("attribute_not_exists(#k)")
		input.ExpressionAttributeNames = map[string]string{"#k": attrKey}
	}
	_, err := b.client.PutItem(ctx, input)
	if isConditionFailed(err) {
		return types.ErrAlreadyExists
	}
	return err
}

func (b *DynamoDBBackend) Swap(ctx context.Context, table string, item Item, expected int64) error {
	_, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(table),
		Item:                     toAttributes(item),
		ConditionExpression:      aws.String("#ver = :expected"),
		ExpressionAttributeNames: map[string]string{"#ver": attrVersion},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":expected": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		},
	})
	if isConditionFailed(err) {
		return types.ErrVersionConflict
	}
	return err
}

func (b *DynamoDBBackend) Get(ctx context.Context, table, key string) (*Item, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            map[string]ddbtypes.AttributeValue{attrKey: &ddbtypes.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	item, err := fromAttributes(out.Item)
	if err != nil {
		return nil, fmt.Errorf("corrupt item %s in %s: %w", key, table, err)
	}
	return &item, nil
}

func (b *DynamoDBBackend) Query(ctx context.Context, table, index, value string) ([]Item, error) {
	paginator := dynamodb.NewQueryPaginator(b.client, &dynamodb.QueryInput{
		TableName:                aws.String(table),
		IndexName:                aws.String(gsiName(index)),
		KeyConditionExpression:   aws.String("#ix = :value"),
		ExpressionAttributeNames: map[string]string{"#ix": attrIndexPrefix + index},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":value": &ddbtypes.AttributeValueMemberS{Value: value},
		},
	})

	var items []Item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, attrs := range page.Items {
			item, err := fromAttributes(attrs)
			if err != nil {
				return nil, fmt.Errorf("corrupt item in %s: %w", table, err)
			}
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func (b *DynamoDBBackend) Delete(ctx context.Context, table, key string) error {
	_, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       map[string]ddbtypes.AttributeValue{attrKey: &ddbtypes.AttributeValueMemberS{Value: key}},
	})
	return err
}

func (b *DynamoDBBackend) Scan(ctx context.Context, table string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		paginator := dynamodb.NewScanPaginator(b.client, &dynamodb.ScanInput{
			TableName:      aws.String(table),
			ConsistentRead: aws.Bool(true),
			Limit:          aws.Int32(b.pageSize),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(Item{}, err)
				return
			}
			for _, attrs := range page.Items {
				item, err := fromAttributes(attrs)
				if err != nil {
					yield(Item{}, fmt.Errorf("corrupt item in %s: %w", table, err))
					return
				}
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Close is a no-op; the SDK client holds no connections that need releasing.
func (b *DynamoDBBackend) Close() error {
	return nil
}
