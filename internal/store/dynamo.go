package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// streamKey partitions the readings table. There is a single global
// reading stream, so one partition is enough.
const streamKey = "weather"

// DynamoTables names the three tables a Dynamo store works against.
type DynamoTables struct {
	Readings string
	Rules    string
	Triggers string
}

// Dynamo is the hosted document store: rules, triggers and readings as
// attribute-value items. Rules and triggers tables carry an
// ownerId-index GSI; readings use streamId + timestamp as the key.
type Dynamo struct {
	svc    *dynamodb.Client
	tables DynamoTables
}

func NewDynamo(ctx context.Context, region string, tables DynamoTables) (*Dynamo, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &Dynamo{svc: dynamodb.NewFromConfig(cfg), tables: tables}, nil
}

type dynamoReading struct {
	StreamID    string  `dynamodbav:"streamId"`
	Timestamp   int64   `dynamodbav:"timestamp"`
	ReadingID   string  `dynamodbav:"readingId"`
	Temperature float64 `dynamodbav:"temperature"`
	Humidity    float64 `dynamodbav:"humidity"`
	SourceID    string  `dynamodbav:"sourceId"`
}

type dynamoRule struct {
	RuleID       string   `dynamodbav:"ruleId"`
	OwnerID      string   `dynamodbav:"ownerId"`
	Name         string   `dynamodbav:"name"`
	Metric       string   `dynamodbav:"metric"`
	MinThreshold *float64 `dynamodbav:"minThreshold,omitempty"`
	MaxThreshold *float64 `dynamodbav:"maxThreshold,omitempty"`
	Active       bool     `dynamodbav:"active"`
	CreatedAt    int64    `dynamodbav:"createdAt"`
	UpdatedAt    int64    `dynamodbav:"updatedAt"`
}

type dynamoTrigger struct {
	TriggerID     string  `dynamodbav:"triggerId"`
	RuleID        string  `dynamodbav:"ruleId"`
	OwnerID       string  `dynamodbav:"ownerId"`
	Metric        string  `dynamodbav:"metric"`
	ObservedValue float64 `dynamodbav:"observedValue"`
	Direction     string  `dynamodbav:"direction"`
	Timestamp     int64   `dynamodbav:"timestamp"`
	Acknowledged  bool    `dynamodbav:"acknowledged"`
}

func (d *Dynamo) Append(ctx context.Context, r domain.Reading) (string, error) {
	id := uuid.NewString()
	item, err := attributevalue.MarshalMap(dynamoReading{
		StreamID:    streamKey,
		Timestamp:   r.Timestamp.UnixMilli(),
		ReadingID:   id,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		SourceID:    r.SourceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal reading: %w", err)
	}

	_, err = d.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Readings),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put reading: %v", domain.ErrStoreUnavailable, err)
	}
	return id, nil
}

func (d *Dynamo) QueryRange(ctx context.Context, start, end time.Time, f domain.ReadingFilter) ([]domain.Reading, error) {
	out, err := d.svc.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Readings),
		KeyConditionExpression: aws.String("streamId = :sid AND #ts BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid":   &types.AttributeValueMemberS{Value: streamKey},
			":start": &types.AttributeValueMemberN{Value: strconv.FormatInt(start.UnixMilli(), 10)},
			":end":   &types.AttributeValueMemberN{Value: strconv.FormatInt(end.UnixMilli(), 10)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(historyQueryLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %v", domain.ErrStoreUnavailable, err)
	}

	var items []dynamoReading
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
	}

	readings := make([]domain.Reading, 0, len(items))
	for _, it := range items {
		r := domain.Reading{
			ID:          it.ReadingID,
			Temperature: it.Temperature,
			Humidity:    it.Humidity,
			Timestamp:   time.UnixMilli(it.Timestamp),
			SourceID:    it.SourceID,
		}
		if f.Matches(r) {
			readings = append(readings, r)
		}
	}
	return readings, nil
}

func (d *Dynamo) CreateRule(ctx context.Context, rule domain.AlertRule) (domain.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	rule.ID = uuid.NewString()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt

	if err := d.putRule(ctx, rule); err != nil {
		return domain.AlertRule{}, err
	}
	return rule, nil
}

func (d *Dynamo) putRule(ctx context.Context, rule domain.AlertRule) error {
	item, err := attributevalue.MarshalMap(dynamoRule{
		RuleID:       rule.ID,
		OwnerID:      rule.OwnerID,
		Name:         rule.Name,
		Metric:       string(rule.Metric),
		MinThreshold: rule.MinThreshold,
		MaxThreshold: rule.MaxThreshold,
		Active:       rule.Active,
		CreatedAt:    rule.CreatedAt.UnixMilli(),
		UpdatedAt:    rule.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	_, err = d.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Rules),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: put rule: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Dynamo) getRule(ctx context.Context, id string) (domain.AlertRule, error) {
	out, err := d.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Rules),
		Key: map[string]types.AttributeValue{
			"ruleId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("%w: get rule: %v", domain.ErrStoreUnavailable, err)
	}
	if out.Item == nil {
		return domain.AlertRule{}, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	var it dynamoRule
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return domain.AlertRule{}, fmt.Errorf("failed to unmarshal rule: %w", err)
	}
	return ruleFromItem(it), nil
}

func (d *Dynamo) UpdateRule(ctx context.Context, id string, upd domain.RuleUpdate) (domain.AlertRule, error) {
	rule, err := d.getRule(ctx, id)
	if err != nil {
		return domain.AlertRule{}, err
	}

	merged := upd.ApplyTo(rule)
	if err := merged.Validate(); err != nil {
		return domain.AlertRule{}, err
	}
	merged.UpdatedAt = time.Now()

	if err := d.putRule(ctx, merged); err != nil {
		return domain.AlertRule{}, err
	}
	return merged, nil
}

func (d *Dynamo) DeleteRule(ctx context.Context, id string) error {
	_, err := d.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tables.Rules),
		Key: map[string]types.AttributeValue{
			"ruleId": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(ruleId)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("%w: delete rule: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Dynamo) ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error) {
	rules, err := d.listRules(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	active := rules[:0]
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

func (d *Dynamo) ListByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error) {
	rules, err := d.listRules(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
	return rules, nil
}

func (d *Dynamo) listRules(ctx context.Context, ownerID string) ([]domain.AlertRule, error) {
	out, err := d.svc.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Rules),
		IndexName:              aws.String("ownerId-index"),
		KeyConditionExpression: aws.String("ownerId = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query rules: %v", domain.ErrStoreUnavailable, err)
	}

	var items []dynamoRule
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}

	rules := make([]domain.AlertRule, len(items))
	for i, it := range items {
		rules[i] = ruleFromItem(it)
	}
	return rules, nil
}

func ruleFromItem(it dynamoRule) domain.AlertRule {
	return domain.AlertRule{
		ID:           it.RuleID,
		OwnerID:      it.OwnerID,
		Name:         it.Name,
		Metric:       domain.Metric(it.Metric),
		MinThreshold: it.MinThreshold,
		MaxThreshold: it.MaxThreshold,
		Active:       it.Active,
		CreatedAt:    time.UnixMilli(it.CreatedAt),
		UpdatedAt:    time.UnixMilli(it.UpdatedAt),
	}
}

// AppendTrigger denormalizes the rule's owner onto the trigger item so
// owner queries survive rule deletion.
func (d *Dynamo) AppendTrigger(ctx context.Context, t domain.AlertTrigger) (domain.AlertTrigger, error) {
	rule, err := d.getRule(ctx, t.RuleID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.AlertTrigger{}, err
	}

	t.ID = uuid.NewString()
	item, err := attributevalue.MarshalMap(dynamoTrigger{
		TriggerID:     t.ID,
		RuleID:        t.RuleID,
		OwnerID:       rule.OwnerID,
		Metric:        string(t.Metric),
		ObservedValue: t.ObservedValue,
		Direction:     string(t.Direction),
		Timestamp:     t.Timestamp.UnixMilli(),
		Acknowledged:  t.Acknowledged,
	})
	if err != nil {
		return domain.AlertTrigger{}, fmt.Errorf("failed to marshal trigger: %w", err)
	}

	_, err = d.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.Triggers),
		Item:      item,
	})
	if err != nil {
		return domain.AlertTrigger{}, fmt.Errorf("%w: put trigger: %v", domain.ErrStoreUnavailable, err)
	}
	return t, nil
}

func (d *Dynamo) ListTriggersByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AlertTrigger, error) {
	if limit <= 0 {
		limit = DefaultTriggerLimit
	}

	triggers, err := d.triggersByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(triggers) > limit {
		triggers = triggers[:limit]
	}
	return triggers, nil
}

func (d *Dynamo) triggersByOwner(ctx context.Context, ownerID string) ([]domain.AlertTrigger, error) {
	out, err := d.svc.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Triggers),
		IndexName:              aws.String("ownerId-timestamp-index"),
		KeyConditionExpression: aws.String("ownerId = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: ownerID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query triggers: %v", domain.ErrStoreUnavailable, err)
	}

	var items []dynamoTrigger
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triggers: %w", err)
	}

	triggers := make([]domain.AlertTrigger, len(items))
	for i, it := range items {
		triggers[i] = domain.AlertTrigger{
			ID:            it.TriggerID,
			RuleID:        it.RuleID,
			Metric:        domain.Metric(it.Metric),
			ObservedValue: it.ObservedValue,
			Direction:     domain.Direction(it.Direction),
			Timestamp:     time.UnixMilli(it.Timestamp),
			Acknowledged:  it.Acknowledged,
		}
	}
	return triggers, nil
}

// Acknowledge is idempotent: setting acknowledged on an already
// acknowledged trigger is a no-op write.
func (d *Dynamo) Acknowledge(ctx context.Context, triggerID string) error {
	_, err := d.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tables.Triggers),
		Key: map[string]types.AttributeValue{
			"triggerId": &types.AttributeValueMemberS{Value: triggerID},
		},
		UpdateExpression:    aws.String("SET acknowledged = :ack"),
		ConditionExpression: aws.String("attribute_exists(triggerId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ack": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("trigger %s: %w", triggerID, domain.ErrNotFound)
		}
		return fmt.Errorf("%w: acknowledge trigger: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Dynamo) UnacknowledgedCount(ctx context.Context, ownerID string) (int, error) {
	triggers, err := d.triggersByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, t := range triggers {
		if !t.Acknowledged {
			count++
		}
	}
	return count, nil
}
