package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
	"github.com/Dosada05/tournament-organizer/storage"
)

const (
	snapshotContentType = "application/json"
	uploadTimeout       = 30 * time.Second
)

// Snapshot is the public, read-only picture of a tournament season.
type Snapshot struct {
	Tournament    *models.Tournament `json:"tournament"`
	Standings     *StandingsView     `json:"standings"`
	Qualification *QualificationView `json:"qualification,omitempty"`
	Bracket       *BracketView       `json:"bracket"`
	PublishedAt   time.Time          `json:"published_at"`
}

// PublishReceipt tells where the snapshot will appear once uploaded.
type PublishReceipt struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PublishService interface {
	// Publish builds the snapshot now and uploads it in the background.
	Publish(ctx context.Context, ownerID int, tournamentID string) (*PublishReceipt, error)
	Unpublish(ctx context.Context, ownerID int, tournamentID string) error
	// Stop waits for queued uploads to finish.
	Stop()
}

type publishService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	uploader       storage.FileUploader
	pool           *workerpool.WorkerPool
	metrics        *metrics.Metrics
	clock          clockwork.Clock
	logger         *slog.Logger
}

// NewPublishService starts a pool of upload workers. A nil uploader
// disables publishing.
func NewPublishService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	workers int,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
) PublishService {
	return &publishService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		uploader:       uploader,
		pool:           workerpool.New(max(workers, 1)),
		metrics:        m,
		clock:          clock,
		logger:         logger,
	}
}

func snapshotKey(t *models.Tournament) string {
	return fmt.Sprintf("tournaments/%s/season-%d.json", t.ID, t.Season)
}

func (s *publishService) Publish(ctx context.Context, ownerID int, tournamentID string) (*PublishReceipt, error) {
	if s.uploader == nil {
		return nil, ErrPublishingDisabled
	}
	data, err := loadTournamentData(ctx, s.tournamentRepo, s.teamRepo, s.matchRepo, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		Standings:   standingsOf(data),
		Bracket:     bracketOf(data),
		PublishedAt: s.clock.Now().UTC(),
	}
	if data.Tournament.Format == models.FormatGroupsKnockout {
		snapshot.Qualification = qualificationOf(data.Tournament, data.Matches)
	}
	snapshot.Tournament = data.expanded()

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot of tournament %s: %w", tournamentID, err)
	}

	key := snapshotKey(snapshot.Tournament)
	s.pool.Submit(func() {
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
		defer cancel()

		result, err := s.uploader.Upload(uploadCtx, key, snapshotContentType, bytes.NewReader(body))
		if err != nil {
			s.metrics.PublishJobs.WithLabelValues("failed").Inc()
			s.logger.Error("snapshot upload failed", slog.String("key", key), slog.Any("error", err))
			return
		}
		s.metrics.PublishJobs.WithLabelValues("uploaded").Inc()
		s.logger.Info("snapshot uploaded", slog.String("key", key), slog.String("location", result.Location))
	})

	return &PublishReceipt{Key: key, URL: s.uploader.GetPublicURL(key)}, nil
}

// Unpublish removes the snapshot of the tournament's current season.
func (s *publishService) Unpublish(ctx context.Context, ownerID int, tournamentID string) error {
	if s.uploader == nil {
		return ErrPublishingDisabled
	}
	t, err := s.tournamentRepo.GetByID(ctx, ownerID, tournamentID)
	if err != nil {
		return handleRepositoryError(err)
	}
	key := snapshotKey(t)
	if err := s.uploader.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to remove snapshot of tournament %s: %w", tournamentID, err)
	}
	s.logger.Info("snapshot removed", slog.String("key", key))
	return nil
}

func (s *publishService) Stop() {
	s.pool.StopWait()
}
