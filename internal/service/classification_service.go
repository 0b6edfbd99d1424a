package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/pkg/utils"
)

// Object key prefixes for archived uploads
const (
	ArchiveSoil    = "soil"
	ArchiveDisease = "disease"
)

// ClassificationService runs image classifications and records the results
type ClassificationService struct {
	soil    SoilClassifier
	disease DiseaseClassifier
	archive domain.ImageArchive
	repo    DataRepository
	log     *zap.Logger

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewClassificationService creates a new classification service.
// archive may be nil when no object store is configured.
func NewClassificationService(
	soil SoilClassifier,
	disease DiseaseClassifier,
	archive domain.ImageArchive,
	repo DataRepository,
	log *zap.Logger,
) *ClassificationService {
	return &ClassificationService{
		soil:    soil,
		disease: disease,
		archive: archive,
		repo:    repo,
		log:     log,
	}
}

// WaitBackground blocks until all background save goroutines complete.
func (s *ClassificationService) WaitBackground() {
	s.wgBg.Wait()
}

// Soil classifies a soil image
func (s *ClassificationService) Soil(ctx context.Context, sessionID string, upload domain.ImageUpload) (domain.SoilClassification, error) {
	result, err := s.soil.ClassifySoil(ctx, upload)
	if err != nil {
		return domain.SoilClassification{}, err
	}

	result.ImageKey = s.archiveAsync(ArchiveSoil, upload)
	s.background(func(ctx context.Context) error {
		return s.repo.SaveSoilClassification(ctx, sessionID, result)
	})
	return result, nil
}

// Disease diagnoses a leaf image
func (s *ClassificationService) Disease(ctx context.Context, sessionID string, upload domain.ImageUpload) (domain.DiseaseDiagnosis, error) {
	result, err := s.disease.ClassifyDisease(ctx, upload)
	if err != nil {
		return domain.DiseaseDiagnosis{}, err
	}

	result.ImageKey = s.archiveAsync(ArchiveDisease, upload)
	s.background(func(ctx context.Context) error {
		return s.repo.SaveDiseaseDiagnosis(ctx, sessionID, result)
	})
	return result, nil
}

// archiveAsync picks an object key and uploads in the background.
// It returns "" when archiving is disabled.
func (s *ClassificationService) archiveAsync(kind string, upload domain.ImageUpload) string {
	if s.archive == nil {
		return ""
	}
	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), utils.ImageExt(upload.Filename, upload.ContentType))
	s.background(func(ctx context.Context) error {
		return s.archive.Store(ctx, key, upload)
	})
	return key
}

func (s *ClassificationService) background(fn func(ctx context.Context) error) {
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(bgCtx); err != nil {
			s.log.Warn("background save failed", zap.Error(err))
		}
	}()
}
