package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	datasource "coin-observer/src/data_source"
	"coin-observer/src/helpers"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const maxRankingLimit = 100

// ControlService implements CoinObserverControlServer
type ControlService struct {
	Config   *models.MConfig
	Provider interfaces.IAnalyticsProvider
	Sources  *datasource.TickSourceManager
	Logger   *logger.Logger
}

// NewControlService creates a new instance of ControlService. sources may be
// nil when no live feed runs.
func NewControlService(
	cfg *models.MConfig,
	provider interfaces.IAnalyticsProvider,
	sources *datasource.TickSourceManager,
	log *logger.Logger,
) *ControlService {
	if log == nil {
		log = logger.NewLogger(cfg, "ControlService")
	}
	return &ControlService{
		Config:   cfg,
		Provider: provider,
		Sources:  sources,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) sourceNames() []string {
	if s.Sources == nil {
		return []string{}
	}
	return s.Sources.SourceNames()
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"policy":          s.Provider.PolicyName(),
		"partitions":      s.Provider.CacheStatus(),
		"sources":         s.sourceNames(),
		"tracked_symbols": len(s.Provider.LiveChanges()),
		"memory":          helpers.CurrentMemoryReport(),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	running := s.Sources != nil && s.Sources.IsRunning()
	return toStruct(map[string]interface{}{
		"sources": s.sourceNames(),
		"running": running,
	})
}

// -----------------------------------------------------------------------------

// UpdateSymbols narrows every live source to the given symbols. Each one is
// validated first; nothing is changed if any fails.
func (s *ControlService) UpdateSymbols(ctx context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	if s.Sources == nil {
		return nil, status.Error(codes.FailedPrecondition, "no live sources configured")
	}
	if len(req.GetValues()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "symbols list cannot be empty")
	}

	symbols := make([]string, 0, len(req.GetValues()))
	for _, v := range req.GetValues() {
		symbol, err := helpers.ValidateSymbol(v.GetStringValue(), s.Config.DataSource.QuoteAsset)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		symbols = append(symbols, symbol)
	}

	if err := s.Sources.UpdateSymbols(symbols); err != nil {
		s.Logger.Error("gRPC: Failed to update symbols: %v", err)
		return nil, status.Errorf(codes.Internal, "update symbols: %v", err)
	}

	s.Logger.Info("gRPC: UpdateSymbols success. Count: %d", len(symbols))
	return toStruct(map[string]interface{}{
		"success":      true,
		"symbol_count": len(symbols),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) RefreshPartition(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := req.GetValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "partition is required")
	}

	err := s.Provider.RefreshPartition(ctx, name)
	var ve *helpers.ValidationError
	switch {
	case errors.As(err, &ve):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		// the previous payload is still served
		return nil, status.Errorf(codes.Unavailable, "refresh %s: %v", name, err)
	}

	s.Logger.Info("gRPC: Refreshed partition %s", name)
	for _, p := range s.Provider.CacheStatus() {
		if p.Name == name {
			return toStruct(p)
		}
	}
	return toStruct(map[string]interface{}{"name": name})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ClearCache(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	s.Provider.ClearCache()
	s.Logger.Info("gRPC: Cache cleared")
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

// ListRanking returns {"coins": [...]} for req {"list": "hot"|"stable", "limit": n}.
func (s *ControlService) ListRanking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	list := fields["list"].GetStringValue()
	limit := int(fields["limit"].GetNumberValue())
	if limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}

	var coins []*models.MCoinAnalytics
	switch list {
	case "hot":
		coins = s.Provider.HotCoins(ctx, limit)
	case "stable":
		coins = s.Provider.StableCoins(ctx, limit)
	default:
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("unknown list %q, want hot or stable", list))
	}

	return toStruct(map[string]interface{}{
		"list":   list,
		"policy": s.Provider.PolicyName(),
		"coins":  coins,
	})
}
