package mq

import (
	"context"
	"errors"

	"cms_chat_console/internal/model"
)

// Fanout 依次发布给多个 Publisher，单个失败不影响其他
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, u model.Update) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
