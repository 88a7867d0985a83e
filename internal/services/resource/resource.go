// Package resource reads and writes the inventory entities through the
// gateway. Reads are tagged with the kind's name; writes invalidate it.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/confirm"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/table"
	"github.com/FurmanovVitaliy/logger"
)

var ErrRejected = errors.New("backend rejected the request")

// RejectedError carries the backend's status and message for a failed write.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected the request: %d %s", e.Status, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

type Gateway interface {
	Do(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

type Service struct {
	log *slog.Logger
	gw  Gateway
}

func New(log *slog.Logger, gw Gateway) *Service {
	return &Service{log: log, gw: gw}
}

func path(kind Kind, id int64) string {
	return kind.Endpoint() + "/" + strconv.FormatInt(id, 10)
}

// List reads one page of kind using the table state from the URL.
func List[T any](ctx context.Context, s *Service, kind Kind, state table.State) (models.Envelope[[]T], error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method:   http.MethodGet,
		Endpoint: kind.Endpoint(),
		Params:   state.Wire(),
		Tags:     []string{kind.Name},
	})
	if err != nil {
		return models.Envelope[[]T]{}, err
	}
	return gateway.Decode[[]T](resp)
}

// Find reads one record of kind.
func Find[T any](ctx context.Context, s *Service, kind Kind, id int64) (models.Envelope[T], error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method:   http.MethodGet,
		Endpoint: path(kind, id),
		Tags:     []string{kind.Name},
	})
	if err != nil {
		return models.Envelope[T]{}, err
	}
	return gateway.Decode[T](resp)
}

func (s *Service) Create(ctx context.Context, kind Kind, input any) (models.RawEnvelope, error) {
	return s.write(ctx, "resource.Service.Create", http.MethodPost, kind.Endpoint(), kind, input)
}

func (s *Service) Update(ctx context.Context, kind Kind, id int64, input any) (models.RawEnvelope, error) {
	return s.write(ctx, "resource.Service.Update", http.MethodPut, path(kind, id), kind, input)
}

func (s *Service) Delete(ctx context.Context, kind Kind, id int64) (models.RawEnvelope, error) {
	return s.write(ctx, "resource.Service.Delete", http.MethodDelete, path(kind, id), kind, nil)
}

func (s *Service) write(ctx context.Context, op, method, endpoint string, kind Kind, body any) (models.RawEnvelope, error) {
	log := s.log.With(
		logger.StringAttr("op", op),
		logger.StringAttr("resource", kind.Name),
	)

	resp, err := s.gw.Do(ctx, gateway.Request{
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
		Tags:     []string{kind.Name},
	})
	if err != nil {
		log.Error("write failed", logger.ErrAttr(err))
		return models.RawEnvelope{}, fmt.Errorf("%s: %w", op, err)
	}

	env, err := gateway.Decode[json.RawMessage](resp)
	if err != nil {
		return models.RawEnvelope{}, fmt.Errorf("%s: %w", op, err)
	}
	if !resp.OK() || !env.OK() {
		log.Info("write rejected", slog.Int("status", env.Status), logger.StringAttr("message", env.Message))
	}
	return env, nil
}

// DeleteAction is the command a delete confirmation runs. A rejected delete
// surfaces as a RejectedError.
func (s *Service) DeleteAction(kind Kind, id int64) confirm.Action {
	return confirm.Action{
		Description: fmt.Sprintf("Delete %s #%d? This cannot be undone.", kind.Singular, id),
		Execute: func(ctx context.Context) error {
			env, err := s.Delete(ctx, kind, id)
			if err != nil {
				return err
			}
			if !env.OK() {
				return &RejectedError{Status: env.Status, Message: env.Message}
			}
			return nil
		},
	}
}

// DeleteOptions are the dialog options for deleting a record of kind.
func DeleteOptions(kind Kind) confirm.Options {
	return confirm.Options{
		Title:         "Delete " + kind.Singular,
		ConfirmText:   "Delete",
		CancelText:    "Cancel",
		IsDestructive: true,
	}
}
