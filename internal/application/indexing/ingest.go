package indexing

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// EventIngestRequested is the event type of an enveloped IngestRequest.
const EventIngestRequested = "record.ingest_requested"

// Accepted text formats per kind. An empty format lets the toolkit detect it.
var formats = map[record.Kind][]string{
	record.KindMolecule:         {structure.FormatSMILES, structure.FormatMolfile},
	record.KindReaction:         {structure.FormatSMILES, structure.FormatRxnfile},
	record.KindReactionTemplate: {structure.FormatSMARTS, structure.FormatRxnfile},
}

// IngestRequest asks for one structure to be indexed.
type IngestRequest struct {
	Kind   string `json:"kind"`
	Format string `json:"format,omitempty"`
	Text   string `json:"text"`
	Name   string `json:"name,omitempty"`
}

// Validate checks the request and returns its kind.
func (r IngestRequest) Validate() (record.Kind, error) {
	kind, err := record.ParseKind(r.Kind)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", errors.InvalidParam("ingest text is required")
	}
	if err := ValidateFormat(kind, r.Format); err != nil {
		return "", err
	}
	return kind, nil
}

// ValidateFormat checks that format, compared case-insensitively, is accepted
// for kind. The empty format is always accepted.
func ValidateFormat(kind record.Kind, format string) error {
	if format == "" {
		return nil
	}
	for _, f := range formats[kind] {
		if strings.EqualFold(f, format) {
			return nil
		}
	}
	return errors.InvalidParam("unsupported format for kind").
		WithDetail("kind=" + string(kind) + " format=" + format)
}

// LoadStructure parses text with the session loader matching kind. A
// non-empty format is handed to the toolkit, which must then implement
// structure.FormatLoader; an empty one leaves detection to the toolkit.
func LoadStructure(session structure.Session, kind record.Kind, format, text string) (structure.Object, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var fl structure.FormatLoader
	if format != "" {
		var ok bool
		if fl, ok = session.(structure.FormatLoader); !ok {
			return nil, errors.InvalidParam("structure toolkit does not accept an explicit format").
				WithDetail("format=" + format)
		}
	}

	var (
		obj structure.Object
		err error
	)
	switch kind {
	case record.KindMolecule:
		if fl != nil {
			obj, err = fl.LoadMoleculeAs(format, text)
		} else {
			obj, err = session.LoadMolecule(text)
		}
	case record.KindReaction:
		if fl != nil {
			obj, err = fl.LoadReactionAs(format, text)
		} else {
			obj, err = session.LoadReaction(text)
		}
	case record.KindReactionTemplate:
		if fl != nil {
			obj, err = fl.LoadQueryReactionAs(format, text)
		} else {
			obj, err = session.LoadQueryReaction(text)
		}
	default:
		return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "failed to load structure").
			WithDetail("kind=" + string(kind) + " format=" + format)
	}
	return obj, nil
}

// TextLoader returns a loader that opens its own session of toolkit and
// parses text in format.
func TextLoader(toolkit string, kind record.Kind, format, text string) StructureLoader {
	return func() (structure.Object, error) {
		session, err := structure.Open(toolkit)
		if err != nil {
			return nil, err
		}
		return LoadStructure(session, kind, format, text)
	}
}

// IngestHandler indexes the structures requested on the ingest topic. Each
// message gets its own toolkit session.
type IngestHandler struct {
	svc     Service
	toolkit string
	metrics Metrics
	logger  logging.Logger
}

// NewIngestHandler creates the handler. metrics may be nil.
func NewIngestHandler(svc Service, toolkit string, metrics Metrics, logger logging.Logger) *IngestHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &IngestHandler{svc: svc, toolkit: toolkit, metrics: metrics, logger: logger.Named("ingest")}
}

// DecodeIngestRequest reads a request from a raw JSON message or from an
// event envelope.
func DecodeIngestRequest(msg *kafka.Message) (IngestRequest, error) {
	var req IngestRequest
	if msg.Headers[kafka.HeaderEventType] != "" {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return req, err
		}
		if err := env.DecodePayload(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return req, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode ingest request")
	}
	return req, nil
}

// Handle implements kafka.MessageHandler.
func (h *IngestHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	r, err := h.handle(ctx, msg)
	h.metrics.IngestMessage(err)
	if err != nil {
		h.logger.Warn("ingest request failed",
			logging.String(logging.FieldTopic, msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.ErrCode(err),
			logging.Err(err))
		return err
	}
	h.logger.Debug("ingest request indexed",
		logging.String(logging.FieldKind, string(r.Kind())),
		logging.String(logging.FieldRecordID, r.ID()))
	return nil
}

func (h *IngestHandler) handle(ctx context.Context, msg *kafka.Message) (*record.Record, error) {
	req, err := DecodeIngestRequest(msg)
	if err != nil {
		return nil, err
	}
	kind, err := req.Validate()
	if err != nil {
		return nil, err
	}
	session, err := structure.Open(h.toolkit)
	if err != nil {
		return nil, err
	}
	obj, err := LoadStructure(session, kind, req.Format, req.Text)
	if err != nil {
		return nil, err
	}

	var opts []record.Option
	if req.Name != "" {
		opts = append(opts, record.WithName(req.Name))
	}
	return h.svc.IndexStructure(ctx, kind, obj, opts...)
}

//Personal.AI order the ending
