package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/metrics"
	"github.com/snappy-loop/poster/internal/models"
	"github.com/snappy-loop/poster/internal/validation"
	"golang.org/x/sync/errgroup"
)

// FailureNotice is the single user-visible message for any failed generation.
const FailureNotice = "生成失败，请检查API Key配置或稍后重试。"

// ErrGenerationInProgress is returned when the session is already Generating.
var ErrGenerationInProgress = errors.New("generation already in progress")

// ErrUnknownGrade is returned by Update for a grade outside the four tiers.
var ErrUnknownGrade = errors.New("unknown grade level")

// PosterController owns the AppState of one session and is the only writer of it.
// States: Idle (IsLoading=false) and Generating (IsLoading=true). On failure the previous
// text and image are kept and Notice is set; IsLoading is always cleared when a generation settles.
type PosterController struct {
	gen       PosterGenerator
	validator *validation.Validator
	now       func() time.Time
	loc       *time.Location

	mu          sync.Mutex
	state       models.AppState
	subscribers map[int]chan models.AppState
	nextSubID   int
}

// ControllerOption configures a PosterController.
type ControllerOption func(*PosterController)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) ControllerOption {
	return func(c *PosterController) { c.now = now }
}

// WithLocation sets the timezone of the display date.
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *PosterController) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithValidator shares a validator between controllers.
func WithValidator(v *validation.Validator) ControllerOption {
	return func(c *PosterController) {
		if v != nil {
			c.validator = v
		}
	}
}

// NewPosterController creates a controller in the Idle state with no results.
// An invalid grade falls back to models.DefaultGrade.
func NewPosterController(gen PosterGenerator, topic string, grade models.GradeLevel, opts ...ControllerOption) *PosterController {
	c := &PosterController{
		gen:         gen,
		now:         time.Now,
		loc:         time.Local,
		subscribers: make(map[int]chan models.AppState),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validator == nil {
		c.validator = validation.New()
	}
	if !grade.Valid() {
		grade = models.DefaultGrade
	}
	c.state = models.AppState{
		Topic:       topic,
		Grade:       grade,
		DisplayDate: models.FormatDisplayDate(c.now().In(c.loc)),
	}
	return c
}

// State returns a snapshot of the current state. Text and Image are shared and must not be modified.
func (c *PosterController) State() models.AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Update applies form input. Refused while Generating so the displayed inputs match the running request.
// An empty or oversized topic yields a *validation.ValidationError and leaves the state untouched.
func (c *PosterController) Update(topic string, grade models.GradeLevel) error {
	if !grade.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownGrade, grade)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsLoading {
		return ErrGenerationInProgress
	}
	if err := c.validator.Validate(models.GenerationRequest{Topic: strings.TrimSpace(topic), Grade: grade}); err != nil {
		return err
	}
	if c.state.Topic == topic && c.state.Grade == grade {
		return nil
	}
	c.state.Topic = topic
	c.state.Grade = grade
	c.publishLocked()
	return nil
}

// generation is one Idle -> Generating -> Idle cycle. err is valid once done is closed.
type generation struct {
	id   uuid.UUID
	done chan struct{}
	err  error
}

// Generate moves Idle -> Generating and starts both calls in the background.
// The returned channel is closed once the state has settled back to Idle.
// An empty topic yields a *validation.ValidationError and leaves the state untouched.
func (c *PosterController) Generate(ctx context.Context) (<-chan struct{}, error) {
	g, err := c.start(ctx)
	if err != nil {
		return nil, err
	}
	return g.done, nil
}

// GenerateAndWait runs Generate and blocks until it settles or ctx is done.
// Returning early on ctx does not cancel the generation.
func (c *PosterController) GenerateAndWait(ctx context.Context) error {
	g, err := c.start(ctx)
	if err != nil {
		return err
	}
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PosterController) start(ctx context.Context) (*generation, error) {
	c.mu.Lock()
	if c.state.IsLoading {
		c.mu.Unlock()
		return nil, ErrGenerationInProgress
	}
	req := models.GenerationRequest{Topic: strings.TrimSpace(c.state.Topic), Grade: c.state.Grade}
	if err := c.validator.Validate(req); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	g := &generation{id: uuid.New(), done: make(chan struct{})}
	c.state.IsLoading = true
	c.state.Notice = ""
	c.state.LastError = ""
	c.state.DisplayDate = models.FormatDisplayDate(c.now().In(c.loc))
	c.publishLocked()
	c.mu.Unlock()

	metrics.GenerationsInFlight.Inc()
	// the generation outlives the request that triggered it
	go c.run(context.WithoutCancel(ctx), g, req)
	return g, nil
}

func (c *PosterController) run(ctx context.Context, g *generation, req models.GenerationRequest) {
	defer close(g.done)
	defer metrics.GenerationsInFlight.Dec()

	logger := log.With().
		Str("generation_id", g.id.String()).
		Str("topic", req.Topic).
		Str("grade", req.Grade.Key()).
		Logger()
	started := c.now()
	logger.Info().Msg("Generating poster")

	text, image, err := generateBoth(ctx, c.gen, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsLoading = false
	if err != nil {
		g.err = err
		c.state.Notice = FailureNotice
		c.state.LastError = err.Error()
		metrics.RecordGeneration("failed")
		logger.Error().Err(err).Dur("elapsed", c.now().Sub(started)).Msg("Poster generation failed")
	} else {
		finished := c.now()
		c.state.Text = text
		c.state.Image = image
		c.state.GeneratedAt = &finished
		metrics.RecordGeneration("succeeded")
		logger.Info().
			Dur("elapsed", finished.Sub(started)).
			Int("image_size_bytes", len(image.Data)).
			Msg("Poster generated")
	}
	c.publishLocked()
}

// generateBoth runs text and image generation concurrently. It returns as soon as either fails;
// the other call's context is cancelled and its result is discarded.
func generateBoth(ctx context.Context, gen PosterGenerator, req models.GenerationRequest) (*models.PosterText, *models.GeneratedImage, error) {
	eg, gctx := errgroup.WithContext(ctx)
	failed := make(chan error, 2)

	var text *models.PosterText
	var image *models.GeneratedImage

	eg.Go(func() error {
		t, err := gen.GeneratePosterText(gctx, req.Topic, req.Grade)
		if err == nil && t == nil {
			err = errors.New("text generator returned no result")
		}
		if err != nil {
			err = fmt.Errorf("poster text: %w", err)
			failed <- err
			return err
		}
		text = t
		return nil
	})
	eg.Go(func() error {
		img, err := gen.GeneratePosterImage(gctx, req.Topic, req.Grade)
		if err == nil && (img == nil || len(img.Data) == 0) {
			err = errors.New("image generator returned no result")
		}
		if err != nil {
			err = fmt.Errorf("poster image: %w", err)
			failed <- err
			return err
		}
		image = img
		return nil
	})

	waited := make(chan error, 1)
	go func() { waited <- eg.Wait() }()

	select {
	case err := <-waited:
		if err != nil {
			return nil, nil, err
		}
		return text, image, nil
	case err := <-failed:
		return nil, nil, err
	}
}

// Subscribe returns a channel that receives the latest state after every transition.
// Slow readers only ever see the most recent state. Call cancel to unsubscribe.
func (c *PosterController) Subscribe() (<-chan models.AppState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan models.AppState, 1)
	c.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publishLocked bumps the version and hands the new state to subscribers. Caller holds c.mu.
func (c *PosterController) publishLocked() {
	c.state.Version++
	for _, ch := range c.subscribers {
		select {
		case ch <- c.state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c.state:
			default:
			}
		}
	}
}
