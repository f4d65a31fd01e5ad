// Package drafts turns typed input into translated transcript messages.
//
// Each source language owns at most one draft: an origin message, its
// translation placeholder, a debounce timer and at most one in-flight
// translate request. The Orchestrator is not safe for concurrent use; it
// runs on its owner's event loop and posts request results back through
// the Post executor.
package drafts

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/duotranslate/apierror"
	"github.com/room4-2/duotranslate/clock"
	"github.com/room4-2/duotranslate/language"
	"github.com/room4-2/duotranslate/metrics"
	"github.com/room4-2/duotranslate/transcript"
)

const (
	// PendingMarker is shown in a translation message until a result lands.
	PendingMarker = "..."
	// DefaultDebounce is how long typing must pause before a request is sent.
	DefaultDebounce = time.Second
)

// ErrUnknownLanguage is returned for a source language outside the active pair.
var ErrUnknownLanguage = errors.New("language is not part of the active pair")

// Translator translates text in a single request.
type Translator interface {
	Translate(ctx context.Context, text string, target language.Language) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	Transcript *transcript.Transcript
	Translator Translator
	Pair       language.Pair
	Clock      clock.Clock
	// Post runs fn on the goroutine that owns the orchestrator.
	Post     func(fn func())
	Debounce time.Duration
	NewID    func() string
	Log      *zap.SugaredLogger
	Metrics  *metrics.Metrics

	// OnChange is called after the transcript was modified.
	OnChange func()
	// OnResult is called after each request that was not aborted, with
	// nil on success.
	OnResult func(err error)
}

type draft struct {
	source        string
	target        language.Language
	originID      string
	translationID string

	timer clock.Timer
	tick  uint64
	req   *request
}

type request struct {
	draft         *draft
	translationID string
	final         bool
	cancel        context.CancelFunc
	aborted       bool
}

func (r *request) abort() {
	r.aborted = true
	r.cancel()
}

// Orchestrator owns the per-language drafts.
type Orchestrator struct {
	opts   Options
	drafts map[string]*draft
	// finals are detached requests issued on submit.
	finals map[*request]struct{}
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	return &Orchestrator{
		opts:   opts,
		drafts: make(map[string]*draft),
		finals: make(map[*request]struct{}),
	}
}

// SetPair changes the language pair. Drafts that no longer translate
// between the two languages of p are discarded along with their messages.
func (o *Orchestrator) SetPair(p language.Pair) {
	o.opts.Pair = p

	removed := false
	for source, d := range o.drafts {
		if target, ok := p.Other(source); ok && target.Code == d.target.Code {
			continue
		}
		o.stop(d)
		o.opts.Transcript.Remove(d.originID, d.translationID)
		delete(o.drafts, source)
		removed = true
	}
	if removed {
		o.changed()
	}
}

// Drafting reports whether source currently has an open draft.
func (o *Orchestrator) Drafting(source string) bool {
	_, ok := o.drafts[source]
	return ok
}

// InFlight returns the number of requests whose results are still awaited.
func (o *Orchestrator) InFlight() int {
	n := len(o.finals)
	for _, d := range o.drafts {
		if d.req != nil {
			n++
		}
	}
	return n
}

// HandleEntry applies the full current text of the input box for source.
// Blank text deletes the draft. final submits it. An open draft keeps the
// target it was created with.
func (o *Orchestrator) HandleEntry(text, source string, final bool) error {
	blank := strings.TrimSpace(text) == ""

	d := o.drafts[source]
	if d == nil {
		target, ok := o.opts.Pair.Other(source)
		if !ok {
			return ErrUnknownLanguage
		}
		if blank {
			return nil
		}
		d = o.open(text, source, target, final)
	} else {
		o.stop(d)

		if blank {
			o.opts.Transcript.Remove(d.originID, d.translationID)
			delete(o.drafts, source)
			o.changed()
			return nil
		}

		o.opts.Transcript.Update(d.originID, func(m *transcript.Message) {
			m.Text = text
		})
	}

	if final {
		o.submit(d, text)
		o.changed()
		return nil
	}

	o.schedule(d, text)
	o.changed()
	return nil
}

func (o *Orchestrator) open(text, source string, target language.Language, final bool) *draft {
	d := &draft{
		source:        source,
		target:        target,
		originID:      o.opts.NewID(),
		translationID: o.opts.NewID(),
	}
	now := o.opts.Clock.Now()

	_ = o.opts.Transcript.Append(transcript.Message{
		ID:        d.originID,
		Text:      text,
		Sender:    transcript.Origin,
		CreatedAt: now,
		IsFinal:   final,
		IsDraft:   !final,
		Modality:  transcript.Text,
	})
	_ = o.opts.Transcript.Append(transcript.Message{
		ID:        d.translationID,
		Text:      PendingMarker,
		Sender:    transcript.Translation,
		CreatedAt: now,
		IsDraft:   true,
		Modality:  transcript.Text,
	})

	o.drafts[source] = d
	return d
}

// submit finalizes both messages and hands the result to a detached request.
func (o *Orchestrator) submit(d *draft, text string) {
	final := func(m *transcript.Message) {
		m.IsFinal = true
		m.IsDraft = false
	}
	o.opts.Transcript.Update(d.originID, final)
	o.opts.Transcript.Update(d.translationID, final)

	req := o.issue(nil, d.translationID, text, d.target, true)
	o.finals[req] = struct{}{}
	delete(o.drafts, d.source)
}

func (o *Orchestrator) schedule(d *draft, text string) {
	d.tick++
	tick := d.tick
	d.timer = o.opts.Clock.AfterFunc(o.opts.Debounce, func() {
		o.opts.Post(func() {
			// A newer keystroke or a teardown invalidated this timer.
			if o.drafts[d.source] != d || d.tick != tick {
				return
			}
			d.timer = nil
			d.req = o.issue(d, d.translationID, text, d.target, false)
		})
	})
}

// stop cancels the pending timer and abandons the in-flight request.
func (o *Orchestrator) stop(d *draft) {
	d.tick++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.req != nil {
		d.req.abort()
		d.req = nil
	}
}

func (o *Orchestrator) issue(d *draft, translationID, text string, target language.Language, final bool) *request {
	ctx, cancel := context.WithCancel(context.Background())
	req := &request{
		draft:         d,
		translationID: translationID,
		final:         final,
		cancel:        cancel,
	}

	trigger := "debounce"
	if final {
		trigger = "final"
	}
	o.opts.Metrics.TranslateRequests.WithLabelValues(trigger).Inc()
	o.opts.Log.Debugf("📤 Translate request (%s) to %s: %d chars", trigger, target.Code, len(text))

	start := o.opts.Clock.Now()
	go func() {
		out, err := o.opts.Translator.Translate(ctx, text, target)
		o.opts.Post(func() {
			o.opts.Metrics.TranslateDuration.Observe(o.opts.Clock.Now().Sub(start).Seconds())
			o.complete(req, out, err)
		})
	}()
	return req
}

func (o *Orchestrator) complete(req *request, out string, err error) {
	req.cancel()
	delete(o.finals, req)
	if req.draft != nil && req.draft.req == req {
		req.draft.req = nil
	}

	if req.aborted || errors.Is(err, context.Canceled) {
		o.opts.Metrics.TranslateAborted.Inc()
		return
	}

	if err != nil {
		kind := "other"
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			kind = string(apiErr.Kind)
		}
		o.opts.Metrics.TranslateFailures.WithLabelValues(kind).Inc()

		if kind == string(apierror.KindRateLimit) {
			o.opts.Log.Warnf("⚠️ Translate rate limited: %v", err)
		} else {
			o.opts.Log.Errorf("❌ Translate failed: %v", err)
		}
		o.result(err)
		return
	}

	o.opts.Transcript.Update(req.translationID, func(m *transcript.Message) {
		m.Text = out
		m.IsFinal = req.final
		m.IsDraft = !req.final
	})
	o.changed()
	o.result(nil)
}

// Reset cancels every timer and request and forgets all drafts. The
// transcript is left untouched.
func (o *Orchestrator) Reset() {
	for source, d := range o.drafts {
		o.stop(d)
		delete(o.drafts, source)
	}
	for req := range o.finals {
		req.abort()
		delete(o.finals, req)
	}
}

func (o *Orchestrator) changed() {
	if o.opts.OnChange != nil {
		o.opts.OnChange()
	}
}

func (o *Orchestrator) result(err error) {
	if o.opts.OnResult != nil {
		o.opts.OnResult(err)
	}
}
