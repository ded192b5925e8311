package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
)

const (
	maxBatchWriteSize = 25
	maxBatchRetries   = 5

	// Лимит элемента DynamoDB: 400 KB; PNG крупнее хранится только в S3
	maxInlineDataURL = 350 * 1024

	attrPK         = "PK"
	attrSK         = "SK"
	attrID         = "id"
	attrDataURL    = "data_url"
	attrCapturedAt = "captured_at"
	attrHost       = "host"
	attrScheme     = "scheme"
	attrResolution = "resolution"
	attrZoom       = "zoom"
	attrTechnique  = "technique"
	attrNotes      = "notes"
	attrWidth      = "width"
	attrHeight     = "height"
	attrObjectKey  = "object_key"
	attrObjectURL  = "object_url"
)

type Config struct {
	TableName       string
	KioskID         string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// itemAPI: часть клиента DynamoDB, которой пользуется репозиторий
type itemAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// GalleryRepository хранит галерею киоска в одной партиции KIOSK#<id>.
// SK = TS#<ms>#ID#<id>, поэтому запрос с ScanIndexForward=false отдает новые первыми.
type GalleryRepository struct {
	client      itemAPI
	tableName   string
	kioskID     string
	strongReads bool
}

func NewGalleryRepository(ctx context.Context, cfg Config) (*GalleryRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return newGalleryRepository(client, cfg), nil
}

func newGalleryRepository(client itemAPI, cfg Config) *GalleryRepository {
	kioskID := strings.TrimSpace(cfg.KioskID)
	if kioskID == "" {
		kioskID = "default"
	}
	return &GalleryRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		kioskID:     kioskID,
		strongReads: cfg.StrongReads,
	}
}

func (r *GalleryRepository) Append(ctx context.Context, shot *entity.Screenshot, maxItems int) ([]*entity.Screenshot, error) {
	item, err := r.toItem(shot)
	if err != nil {
		return nil, err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb put failed: %w", err)
	}

	if maxItems <= 0 {
		return nil, nil
	}

	items, err := r.queryAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) <= maxItems {
		return nil, nil
	}

	stale := items[maxItems:]
	if err := r.deleteItems(ctx, stale); err != nil {
		return nil, err
	}

	// самые старые первыми
	sort.Slice(stale, func(i, j int) bool { return stale[i].CapturedAt.Before(stale[j].CapturedAt) })
	return stale, nil
}

func (r *GalleryRepository) List(ctx context.Context) ([]*entity.Screenshot, error) {
	return r.queryAll(ctx)
}

func (r *GalleryRepository) Get(ctx context.Context, id string) (*entity.Screenshot, error) {
	items, err := r.queryAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entity.ErrScreenshotNotFound
}

func (r *GalleryRepository) Delete(ctx context.Context, id string) (*entity.Screenshot, error) {
	shot, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &r.tableName,
		Key:       r.key(shot),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb delete failed: %w", err)
	}
	return shot, nil
}

func (r *GalleryRepository) Clear(ctx context.Context) ([]*entity.Screenshot, error) {
	items, err := r.queryAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.deleteItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	items, err := r.queryAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// queryAll читает партицию киоска целиком; галерея ограничена GALLERY_MAX_ITEMS
func (r *GalleryRepository) queryAll(ctx context.Context) ([]*entity.Screenshot, error) {
	keyCondition := "#pk = :pk"
	input := &dynamodb.QueryInput{
		TableName:                &r.tableName,
		KeyConditionExpression:   &keyCondition,
		ScanIndexForward:         boolPointer(false),
		ConsistentRead:           boolPointer(r.strongReads),
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: buildPK(r.kioskID)},
		},
	}

	shots := make([]*entity.Screenshot, 0)
	for {
		output, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamodb query failed: %w", err)
		}
		for _, raw := range output.Items {
			shot, err := fromItem(raw)
			if err != nil {
				return nil, err
			}
			shots = append(shots, shot)
		}
		if len(output.LastEvaluatedKey) == 0 {
			return shots, nil
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}
}

func (r *GalleryRepository) deleteItems(ctx context.Context, shots []*entity.Screenshot) error {
	for start := 0; start < len(shots); start += maxBatchWriteSize {
		end := start + maxBatchWriteSize
		if end > len(shots) {
			end = len(shots)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, shot := range shots[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: r.key(shot)},
			})
		}

		if err := r.writeBatchWithRetry(ctx, requests); err != nil {
			return err
		}
	}
	return nil
}

func (r *GalleryRepository) writeBatchWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	if len(requests) == 0 {
		return nil
	}

	pending := map[string][]types.WriteRequest{
		r.tableName: requests,
	}

	for attempt := 0; attempt < maxBatchRetries; attempt++ {
		output, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("dynamodb batch write failed: %w", err)
		}

		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		pending = output.UnprocessedItems
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}

	return fmt.Errorf("dynamodb batch write has unprocessed items after retries")
}

func (r *GalleryRepository) key(shot *entity.Screenshot) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: buildPK(r.kioskID)},
		attrSK: &types.AttributeValueMemberS{Value: buildSK(shot.CapturedAt.UnixMilli(), shot.ID)},
	}
}

func (r *GalleryRepository) toItem(shot *entity.Screenshot) (map[string]types.AttributeValue, error) {
	if strings.TrimSpace(shot.ID) == "" {
		return nil, fmt.Errorf("screenshot id is required")
	}

	dataURL := shot.DataURL
	if len(dataURL) > maxInlineDataURL {
		if shot.ObjectKey == "" {
			return nil, fmt.Errorf("screenshot %s is too large for dynamodb and has no archived object", shot.ID)
		}
		dataURL = ""
	}

	capturedAt := shot.CapturedAt.UTC()
	item := r.key(shot)
	item[attrID] = &types.AttributeValueMemberS{Value: shot.ID}
	item[attrCapturedAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(capturedAt.UnixMilli(), 10)}
	item[attrHost] = &types.AttributeValueMemberS{Value: shot.Host}
	item[attrScheme] = &types.AttributeValueMemberS{Value: shot.Scheme.String()}
	item[attrResolution] = &types.AttributeValueMemberS{Value: shot.Resolution.String()}
	item[attrZoom] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(shot.Zoom, 'f', -1, 64)}
	item[attrTechnique] = &types.AttributeValueMemberS{Value: shot.Technique}
	item[attrWidth] = &types.AttributeValueMemberN{Value: strconv.Itoa(shot.Width)}
	item[attrHeight] = &types.AttributeValueMemberN{Value: strconv.Itoa(shot.Height)}

	if dataURL != "" {
		item[attrDataURL] = &types.AttributeValueMemberS{Value: dataURL}
	}
	if len(shot.Notes) > 0 {
		notes := make([]types.AttributeValue, 0, len(shot.Notes))
		for _, n := range shot.Notes {
			notes = append(notes, &types.AttributeValueMemberS{Value: n})
		}
		item[attrNotes] = &types.AttributeValueMemberL{Value: notes}
	}
	if shot.ObjectKey != "" {
		item[attrObjectKey] = &types.AttributeValueMemberS{Value: shot.ObjectKey}
	}
	if shot.ObjectURL != "" {
		item[attrObjectURL] = &types.AttributeValueMemberS{Value: shot.ObjectURL}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (*entity.Screenshot, error) {
	id, err := attrString(item, attrID)
	if err != nil {
		return nil, err
	}
	capturedAtMS, err := attrInt64(item, attrCapturedAt)
	if err != nil {
		return nil, err
	}

	zoom, _ := strconv.ParseFloat(optionalNumber(item, attrZoom), 64)

	shot := &entity.Screenshot{
		ID:         id,
		DataURL:    optionalString(item, attrDataURL),
		CapturedAt: time.UnixMilli(capturedAtMS).UTC(),
		Host:       optionalString(item, attrHost),
		Scheme:     valueobject.TransportScheme(optionalString(item, attrScheme)),
		Resolution: valueobject.ResolutionClass(optionalString(item, attrResolution)),
		Zoom:       zoom,
		Technique:  optionalString(item, attrTechnique),
		Width:      int(optionalInt64(item, attrWidth)),
		Height:     int(optionalInt64(item, attrHeight)),
		ObjectKey:  optionalString(item, attrObjectKey),
		ObjectURL:  optionalString(item, attrObjectURL),
	}

	if raw, ok := item[attrNotes].(*types.AttributeValueMemberL); ok {
		for _, v := range raw.Value {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				shot.Notes = append(shot.Notes, s.Value)
			}
		}
	}

	return shot, nil
}

func buildPK(kioskID string) string {
	return "KIOSK#" + kioskID
}

func buildSK(capturedAtMS int64, id string) string {
	return fmt.Sprintf("TS#%013d#ID#%s", capturedAtMS, id)
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	raw, ok := item[name]
	if !ok {
		return ""
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func optionalNumber(item map[string]types.AttributeValue, name string) string {
	value, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	parsed, err := strconv.ParseInt(optionalNumber(item, name), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func boolPointer(v bool) *bool {
	return &v
}
