package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/httpx"
)

// ObjectGetter is the part of *s3.Client the event handler needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Response is returned to the Lambda runtime. Body holds a JSON-encoded message.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// EventHandler loads the object named by an S3 notification. The bucket owns the
// object lifecycle, so nothing is archived.
type EventHandler struct {
	client   ObjectGetter
	ingestor FileIngestor
	log      *zap.Logger
}

// NewEventHandler creates a handler fetching objects through client. log may be nil.
func NewEventHandler(client ObjectGetter, ingestor FileIngestor, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{client: client, ingestor: ingestor, log: log}
}

// Handle processes the first record of ev. Failures become a 500 response and the
// returned error is always nil, so the runtime does not redeliver a bad file.
func (h *EventHandler) Handle(ctx context.Context, ev events.S3Event) (Response, error) {
	if len(ev.Records) == 0 {
		return h.failure("", errors.New("event has no records")), nil
	}
	if len(ev.Records) > 1 {
		h.log.Warn("Event carries more than one record, only the first is loaded",
			zap.Int("records", len(ev.Records)))
	}

	rec := ev.Records[0].S3
	bucket := rec.Bucket.Name
	key, err := url.QueryUnescape(rec.Object.Key)
	if err != nil {
		return h.failure(rec.Object.Key, fmt.Errorf("decode key %q: %w", rec.Object.Key, err)), nil
	}
	log := h.log.With(zap.String("bucket", bucket), zap.String("key", key))

	content, err := h.fetch(ctx, bucket, key)
	if err != nil {
		return h.failure(key, err), nil
	}

	res, err := h.ingestor.Ingest(ctx, key, content)
	if err != nil {
		return h.failure(key, err), nil
	}
	log.Info("Object loaded",
		zap.String("load_id", res.LoadID),
		zap.Int("headers", res.Headers),
		zap.Int("lines", res.Lines))
	return Response{
		StatusCode: http.StatusOK,
		Body:       string(httpx.Marshal(fmt.Sprintf("Arquivo %s processado com sucesso.", key))),
	}, nil
}

func (h *EventHandler) fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &apperrors.ConnectionError{Op: "s3 get object", Err: err}
	}
	defer out.Body.Close()
	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &apperrors.ConnectionError{Op: "s3 read object", Err: err}
	}
	return content, nil
}

func (h *EventHandler) failure(key string, err error) Response {
	h.log.Error("Failed to load object",
		zap.String("key", key),
		zap.String("kind", apperrors.Kind(err)),
		zap.Error(err))
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body:       string(httpx.Marshal(err.Error())),
	}
}
