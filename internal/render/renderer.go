/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package render

import (
	"context"
	"time"

	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/rs/zerolog"
)

// Renderer produces timetable images and summary PDFs.
type Renderer struct {
	capturer Capturer
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRenderer wraps capturer with a per-capture timeout.
func NewRenderer(capturer Capturer, timeout time.Duration, logger zerolog.Logger) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{
		capturer: capturer,
		timeout:  timeout,
		logger:   logger.With().Str("component", "renderer").Logger(),
	}
}

// TimetableImage renders the timetable sheet as PNG.
func (r *Renderer) TimetableImage(ctx context.Context, doc Document) ([]byte, error) {
	html, err := HTML(LayoutTimetable, doc)
	if err != nil {
		return nil, err
	}
	return r.capture(ctx, "png", func(ctx context.Context) ([]byte, error) {
		return r.capturer.Screenshot(ctx, html, DefaultWidth, DefaultHeight)
	})
}

// SummaryPDF renders the printable project summary.
func (r *Renderer) SummaryPDF(ctx context.Context, doc Document) ([]byte, error) {
	html, err := HTML(LayoutSummary, doc)
	if err != nil {
		return nil, err
	}
	return r.capture(ctx, "pdf", func(ctx context.Context) ([]byte, error) {
		return r.capturer.PDF(ctx, html)
	})
}

func (r *Renderer) capture(ctx context.Context, format string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "render."+format)
	start := time.Now()
	data, err := fn(ctx)
	telemetry.EndSpan(span, err)
	telemetry.RenderDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.RenderErrorsTotal.WithLabelValues(format).Inc()
		r.logger.Error().Err(err).Str("format", format).Msg("capture failed")
		return nil, err
	}
	r.logger.Debug().Str("format", format).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("captured")
	return data, nil
}

// Close releases the underlying browser.
func (r *Renderer) Close() error {
	return r.capturer.Close()
}
