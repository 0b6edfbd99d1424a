package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
)

type recordingRepo struct {
	DataRepository
	soil    []domain.SoilClassification
	disease []domain.DiseaseDiagnosis
}

func (r *recordingRepo) SaveSoilClassification(ctx context.Context, sessionID string, s domain.SoilClassification) error {
	r.soil = append(r.soil, s)
	return nil
}

func (r *recordingRepo) SaveDiseaseDiagnosis(ctx context.Context, sessionID string, d domain.DiseaseDiagnosis) error {
	r.disease = append(r.disease, d)
	return nil
}

func TestClassificationService_SoilArchivesAndRecords(t *testing.T) {
	archive := &recordingArchive{}
	repo := &recordingRepo{}
	soil := &fakeSoilClassifier{result: domain.SoilClassification{SoilType: "Red"}}
	svc := NewClassificationService(soil, &fakeDiseaseClassifier{}, archive, repo, zap.NewNop())

	result, err := svc.Soil(context.Background(), "s1", soilImage)
	require.NoError(t, err)
	svc.WaitBackground()

	assert.True(t, strings.HasPrefix(result.ImageKey, ArchiveSoil+"/"))
	assert.True(t, strings.HasSuffix(result.ImageKey, ".jpg"))
	assert.Equal(t, []string{result.ImageKey}, archive.keys)
	require.Len(t, repo.soil, 1)
	assert.Equal(t, "Red", repo.soil[0].SoilType)
	assert.Equal(t, result.ImageKey, repo.soil[0].ImageKey)
}

func TestClassificationService_DiseaseWithoutArchive(t *testing.T) {
	repo := &recordingRepo{}
	disease := &fakeDiseaseClassifier{result: domain.DiseaseDiagnosis{Disease: "Tomato___healthy", Healthy: true}}
	svc := NewClassificationService(&fakeSoilClassifier{}, disease, nil, repo, zap.NewNop())

	result, err := svc.Disease(context.Background(), "s1", soilImage)
	require.NoError(t, err)
	svc.WaitBackground()

	assert.Empty(t, result.ImageKey)
	assert.True(t, result.Healthy)
	require.Len(t, repo.disease, 1)
}

func TestClassificationService_FailureRecordsNothing(t *testing.T) {
	archive := &recordingArchive{}
	repo := &recordingRepo{}
	soil := &fakeSoilClassifier{err: domain.ErrNetworkUnavailable}
	svc := NewClassificationService(soil, &fakeDiseaseClassifier{}, archive, repo, zap.NewNop())

	_, err := svc.Soil(context.Background(), "s1", soilImage)
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)
	svc.WaitBackground()

	assert.Empty(t, archive.keys)
	assert.Empty(t, repo.soil)
}
