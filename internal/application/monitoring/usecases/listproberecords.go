package usecases

import (
	"context"

	"hyperfleet/internal/application/monitoring/dto"
	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/logger"
)

const defaultProbeHistoryLimit = 50

type ListProbeRecordsQuery struct {
	EndpointID uint
	Limit      int
}

type ListProbeRecordsResult struct {
	Records []*dto.ProbeRecordDTO
}

// ListProbeRecordsUseCase serves the recent probe history feed used for
// latency and reliability trends.
type ListProbeRecordsUseCase struct {
	endpointRepo endpoint.Repository
	probeRepo    endpoint.ProbeRecordRepository
	logger       logger.Interface
}

func NewListProbeRecordsUseCase(
	endpointRepo endpoint.Repository,
	probeRepo endpoint.ProbeRecordRepository,
	logger logger.Interface,
) *ListProbeRecordsUseCase {
	return &ListProbeRecordsUseCase{
		endpointRepo: endpointRepo,
		probeRepo:    probeRepo,
		logger:       logger,
	}
}

func (uc *ListProbeRecordsUseCase) Execute(ctx context.Context, query ListProbeRecordsQuery) (*ListProbeRecordsResult, error) {
	if _, err := uc.endpointRepo.GetByID(ctx, query.EndpointID); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultProbeHistoryLimit
	}

	records, err := uc.probeRepo.ListRecent(ctx, query.EndpointID, limit)
	if err != nil {
		return nil, err
	}

	result := &ListProbeRecordsResult{Records: make([]*dto.ProbeRecordDTO, 0, len(records))}
	for _, record := range records {
		result.Records = append(result.Records, dto.NewProbeRecordDTO(record))
	}
	return result, nil
}
