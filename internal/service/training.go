package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var trainingTracer = otel.Tracer("service/training")

// TrainingStores is the slice of the store the training center needs.
type TrainingStores interface {
	port.TrainingStore
	port.ProfileStore
}

// TrainingService is the training center.
type TrainingService struct {
	store TrainingStores
	opts  Options
}

// NewTrainingService creates the training service.
func NewTrainingService(store TrainingStores, opts Options) *TrainingService {
	return &TrainingService{store: store, opts: opts.withDefaults()}
}

// ListContent lists every training item.
func (s *TrainingService) ListContent(ctx context.Context, p *domain.Principal) ([]domain.TrainingContent, error) {
	ctx, span := trainingTracer.Start(ctx, "TrainingService.ListContent")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "ListTrainings", s.store.ListTrainings)
}

// CreateContent publishes a training item. Admins and managers only.
func (s *TrainingService) CreateContent(ctx context.Context, p *domain.Principal, in *domain.TrainingContent) (*domain.TrainingContent, error) {
	ctx, span := trainingTracer.Start(ctx, "TrainingService.CreateContent")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if p.Role != domain.RoleAdmin && p.Role != domain.RoleManager {
		return nil, &domain.ErrForbidden{Action: "publish training content"}
	}
	c := *in
	c.ID = ""
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if !c.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "type must be video, ebook or quiz"}
	}
	if c.Points < 0 {
		return nil, &domain.ErrValidation{Field: "points", Message: "points cannot be negative"}
	}
	return storeCall(ctx, s.opts, "CreateTraining", func(ctx context.Context) (*domain.TrainingContent, error) {
		return s.store.CreateTraining(ctx, &c)
	})
}

// RecordCompletion grants the item's points to p once. Completing the same
// item again is a no-op reported as recorded=false.
func (s *TrainingService) RecordCompletion(ctx context.Context, p *domain.Principal, trainingID string, score int) (*domain.CompletionResult, error) {
	ctx, span := trainingTracer.Start(ctx, "TrainingService.RecordCompletion")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if _, err := storeCall(ctx, s.opts, "GetTraining", func(ctx context.Context) (*domain.TrainingContent, error) {
		return s.store.GetTraining(ctx, trainingID)
	}); err != nil {
		return nil, err
	}

	err := storeExec(ctx, s.opts, "CreateCompletion", func(ctx context.Context) error {
		return s.store.CreateCompletion(ctx, &domain.TrainingCompletion{
			UserID:      p.ID,
			TrainingID:  trainingID,
			Score:       score,
			CompletedAt: s.opts.Now(),
		})
	})
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		s.opts.Metrics.IncrDuplicateIgnored("training_completion")
		s.opts.Logger.Debug("training already completed",
			zap.String("user_id", p.ID),
			zap.String("training_id", trainingID),
		)
		return &domain.CompletionResult{Recorded: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.CompletionResult{Recorded: true}, nil
}

// Leaderboard sums the points of each user's completions, highest first.
func (s *TrainingService) Leaderboard(ctx context.Context, p *domain.Principal) ([]domain.LeaderboardEntry, error) {
	ctx, span := trainingTracer.Start(ctx, "TrainingService.Leaderboard")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	var (
		contents    []domain.TrainingContent
		completions []domain.TrainingCompletion
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contents, err = storeCall(gCtx, s.opts, "ListTrainings", s.store.ListTrainings)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = storeCall(gCtx, s.opts, "ListCompletions", s.store.ListCompletions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make(map[string]int, len(contents))
	for _, c := range contents {
		points[c.ID] = c.Points
	}
	totals := make(map[string]int)
	for _, c := range completions {
		totals[c.UserID] += points[c.TrainingID]
	}
	if len(totals) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	profiles, err := storeCall(ctx, s.opts, "ListProfilesByIDs", func(ctx context.Context) ([]domain.Profile, error) {
		return s.store.ListProfilesByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(profiles))
	for _, pr := range profiles {
		names[pr.ID] = pr.FullName
	}

	board := make([]domain.LeaderboardEntry, 0, len(totals))
	for id, total := range totals {
		board = append(board, domain.LeaderboardEntry{UserID: id, FullName: names[id], TotalPoints: total})
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].TotalPoints != board[j].TotalPoints {
			return board[i].TotalPoints > board[j].TotalPoints
		}
		return board[i].UserID < board[j].UserID
	})
	return board, nil
}
