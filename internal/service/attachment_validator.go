package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mansoorceksport/assetfiles/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const validatorInstrumentation = "assetfiles/attachment-validator"

// ValidationState is a step of the attach request validation
type ValidationState string

const (
	StateStart              ValidationState = "start"
	StateMetadataNormalized ValidationState = "metadata_normalized"
	StateShapeSelected      ValidationState = "shape_selected"
	StateContentExtracted   ValidationState = "content_extracted"
	StatePolicyChecked      ValidationState = "policy_checked"
	StateDuplicateChecked   ValidationState = "duplicate_checked"
	StateAccepted           ValidationState = "accepted"
	StateRejected           ValidationState = "rejected"
)

// AttachmentValidatorImpl implements domain.AttachmentValidator.
// It holds no per-request state and is safe for concurrent use.
type AttachmentValidatorImpl struct {
	policies   domain.PolicyProvider
	mime       domain.MimeGuesser
	duplicates domain.DuplicateChecker // nil disables the duplicate check
	tracer     trace.Tracer
	rejections metric.Int64Counter
}

// NewAttachmentValidator creates a new attachment validator
func NewAttachmentValidator(
	policies domain.PolicyProvider,
	mime domain.MimeGuesser,
	duplicates domain.DuplicateChecker,
) *AttachmentValidatorImpl {
	rejections, err := otel.Meter(validatorInstrumentation).Int64Counter(
		"attachment.validation.rejections",
		metric.WithDescription("Attach requests rejected by the validator, by kind"),
	)
	if err != nil {
		rejections = noop.Int64Counter{}
	}

	return &AttachmentValidatorImpl{
		policies:   policies,
		mime:       mime,
		duplicates: duplicates,
		tracer:     otel.Tracer(validatorInstrumentation),
		rejections: rejections,
	}
}

// Validate runs the attach request through every check and returns either a
// descriptor or the first error encountered. No partial descriptor is returned.
func (v *AttachmentValidatorImpl) Validate(ctx context.Context, assetUID string, req *domain.AttachmentRequest) (*domain.AttachmentDescriptor, error) {
	ctx, span := v.tracer.Start(ctx, "attachment.Validate",
		trace.WithAttributes(
			attribute.String("asset.uid", assetUID),
			attribute.String("attachment.file_type", string(req.FileType)),
		),
	)
	defer span.End()

	state := StateStart
	advance := func(next ValidationState) {
		state = next
		span.AddEvent(string(next))
	}

	descriptor, err := v.run(ctx, assetUID, req, advance)
	if err != nil {
		span.SetAttributes(attribute.String("attachment.failed_after", string(state)))
		advance(StateRejected)
		v.recordRejection(ctx, span, req.FileType, err)
		return nil, err
	}

	advance(StateAccepted)
	span.SetAttributes(attribute.String("attachment.method", string(descriptor.Method)))
	return descriptor, nil
}

func (v *AttachmentValidatorImpl) run(ctx context.Context, assetUID string, req *domain.AttachmentRequest, advance func(ValidationState)) (*domain.AttachmentDescriptor, error) {
	metadata, err := NormalizeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}
	advance(StateMetadataNormalized)

	shape, err := SelectShape(req, metadata)
	if err != nil {
		return nil, err
	}
	advance(StateShapeSelected)

	var content *extracted
	switch s := shape.(type) {
	case domain.BinaryShape:
		content, err = extractBinary(s, metadata)
	case domain.Base64Shape:
		content, err = extractBase64(s, metadata)
	case domain.RedirectShape:
		content, err = extractRedirect(metadata)
	default:
		err = fmt.Errorf("unsupported content shape %T", shape)
	}
	if err != nil {
		return nil, err
	}
	advance(StateContentExtracted)

	method := shape.Method()
	if err := checkPolicy(v.policies, v.mime, req.FileType, content.filename, method); err != nil {
		return nil, err
	}
	advance(StatePolicyChecked)

	if err := v.checkDuplicate(ctx, assetUID, req.FileType, content.filename, method); err != nil {
		return nil, err
	}
	advance(StateDuplicateChecked)

	return &domain.AttachmentDescriptor{
		FileType:    req.FileType,
		Method:      method,
		Filename:    content.filename,
		Content:     content.content,
		RedirectURL: content.redirectURL,
		ContentType: v.contentType(content),
		Metadata:    metadata,
	}, nil
}

// checkDuplicate only applies to form media; filenames there must be unique
// per asset. A failed lookup is never read as "no duplicate".
func (v *AttachmentValidatorImpl) checkDuplicate(ctx context.Context, assetUID string, fileType domain.FileType, filename string, method domain.ContentMethod) error {
	if fileType != domain.FileTypeFormMedia || v.duplicates == nil {
		return nil
	}

	exists, err := v.duplicates.ExistsDuplicate(ctx, assetUID, filename, fileType)
	if err != nil {
		return fmt.Errorf("%w: duplicate lookup: %w", domain.ErrStorageUnavailable, err)
	}
	if exists {
		return formatError(method, domain.KindDuplicateFilename, "File already exists", nil)
	}
	return nil
}

// contentType prefers the filename guess and falls back to sniffing the bytes
func (v *AttachmentValidatorImpl) contentType(content *extracted) string {
	if t, ok := v.mime.GuessMimeType(content.filename); ok {
		return t
	}
	if content.content != nil {
		return mimetype.Detect(content.content).String()
	}
	return ""
}

func (v *AttachmentValidatorImpl) recordRejection(ctx context.Context, span trace.Span, fileType domain.FileType, err error) {
	kind := "internal"
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		kind = string(verr.Kind)
		span.SetAttributes(attribute.String("attachment.rejection", kind))
	} else {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			kind = "storage_unavailable"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	v.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("file_type", string(fileType)),
	))
}
