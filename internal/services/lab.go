package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/irfndi/capm-lab-go/internal/cache"
	"github.com/irfndi/capm-lab-go/internal/capm"
	"github.com/irfndi/capm-lab-go/internal/database"
	"github.com/irfndi/capm-lab-go/internal/logging"
	"github.com/irfndi/capm-lab-go/internal/models"
	"github.com/irfndi/capm-lab-go/internal/telemetry"
	"github.com/irfndi/capm-lab-go/internal/utils"
)

// ErrPresetsUnavailable is returned by preset administration when no
// preset database is configured.
var ErrPresetsUnavailable = errors.New("custom presets require a database")

// MaxSMLPoints caps the resolution of an on-demand Security Market Line.
const MaxSMLPoints = 1000

var presetNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// PresetStore persists instructor-defined presets.
type PresetStore interface {
	ListPresets(ctx context.Context) ([]capm.Preset, error)
	Get(ctx context.Context, name string) (*database.PresetRecord, error)
	Upsert(ctx context.Context, preset capm.Preset) (*database.PresetRecord, error)
	Delete(ctx context.Context, name string) error
}

// LabService owns the interactive lab: stateless evaluation, per-session
// input state and the preset table.
type LabService struct {
	domains  capm.Domains
	builtIns capm.PresetTable
	presets  PresetStore
	store    cache.SessionStore
	axis     capm.BetaAxis
	logger   *logging.StandardLogger
	tracer   *telemetry.BusinessTracer
	now      func() time.Time
	newID    func() string
}

// NewLabService creates a lab service. presets may be nil, in which case only
// the built-in presets are offered.
func NewLabService(
	store cache.SessionStore,
	presets PresetStore,
	axis capm.BetaAxis,
	logger *logging.StandardLogger,
	tracer *telemetry.BusinessTracer,
) *LabService {
	if axis.Points == 0 {
		axis = capm.BetaAxis{Min: -0.5, Max: 2.5, Points: capm.DefaultSMLPoints}
	}
	return &LabService{
		domains:  capm.DefaultDomains(),
		builtIns: capm.DefaultPresets(),
		presets:  presets,
		store:    store,
		axis:     axis,
		logger:   logger,
		tracer:   tracer,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Domains returns the bounds table of every control.
func (s *LabService) Domains() capm.Domains {
	return s.domains
}

// Axis returns the beta range charted by default.
func (s *LabService) Axis() capm.BetaAxis {
	return s.axis
}

// Evaluate recomputes the full interactive view for in. It never touches a
// session.
func (s *LabService) Evaluate(in capm.Inputs) models.Snapshot {
	out := capm.Evaluate(in)
	return models.Snapshot{
		Inputs:    in,
		Outputs:   out,
		Metrics:   buildMetrics(out),
		Chart:     capm.Chart(in, s.axis),
		Insights:  buildInsights(in, out),
		UpdatedAt: s.now().UTC(),
	}
}

// Calculate validates in and evaluates it without clamping.
func (s *LabService) Calculate(ctx context.Context, in capm.Inputs) (models.Snapshot, error) {
	_, span := s.tracer.TraceCalculation(ctx, "calculate", in.RiskFreeRate, in.Beta, in.MarketReturn)
	defer span.End()

	if err := validateInputs(in); err != nil {
		s.tracer.RecordError(span, err)
		return models.Snapshot{}, err
	}

	snapshot := s.Evaluate(in)
	if err := validateSnapshot(snapshot); err != nil {
		s.tracer.RecordError(span, err)
		return models.Snapshot{}, err
	}
	s.tracer.RecordResult(span, snapshot.Outputs.ExpectedReturn, snapshot.Outputs.Alpha)
	return snapshot, nil
}

// SecurityMarketLine builds the chart for in over axis. A zero axis uses the
// configured default.
func (s *LabService) SecurityMarketLine(in capm.Inputs, axis capm.BetaAxis) (capm.ChartData, error) {
	if axis == (capm.BetaAxis{}) {
		axis = s.axis
	}
	if err := validateInputs(in); err != nil {
		return capm.ChartData{}, err
	}
	if err := utils.ValidateFinite("beta_min", axis.Min); err != nil {
		return capm.ChartData{}, err
	}
	if err := utils.ValidateFinite("beta_max", axis.Max); err != nil {
		return capm.ChartData{}, err
	}
	if axis.Min >= axis.Max {
		return capm.ChartData{}, utils.NewValidationError("beta_min", "must be below beta_max")
	}
	if axis.Points < 2 || axis.Points > MaxSMLPoints {
		return capm.ChartData{}, utils.NewValidationErrorf("points", "must be between 2 and %d", MaxSMLPoints)
	}
	if err := utils.ValidateFinite("beta_step", (axis.Max-axis.Min)/float64(axis.Points-1)); err != nil {
		return capm.ChartData{}, err
	}

	chart := capm.Chart(in, axis)
	if err := validateChart(chart); err != nil {
		return capm.ChartData{}, err
	}
	return chart, nil
}

// Challenge computes the required beta for c. A zero risk premium yields
// capm.ErrZeroRiskPremium.
func (s *LabService) Challenge(ctx context.Context, c capm.ChallengeInputs) (models.ChallengeView, error) {
	_, span := s.tracer.TraceChallenge(ctx, c.RiskFreeRate, c.MarketReturn, c.TargetReturn)
	defer span.End()

	if err := validateChallenge(c); err != nil {
		s.tracer.RecordError(span, err)
		return models.ChallengeView{Inputs: c}, err
	}

	result, err := capm.Challenge(c)
	if err != nil {
		s.tracer.RecordError(span, err)
		return models.ChallengeView{Inputs: c, Display: "n/a"}, err
	}
	return challengeView(result), nil
}

// EstimateBeta derives a historical beta from two aligned price series.
func (s *LabService) EstimateBeta(ctx context.Context, req models.BetaEstimateRequest) (capm.BetaEstimate, error) {
	_, span := s.tracer.TraceEstimation(ctx, len(req.AssetPrices), req.Window)
	defer span.End()

	if req.Window < 0 {
		err := utils.NewValidationError("window", "must not be negative")
		s.tracer.RecordError(span, err)
		return capm.BetaEstimate{}, err
	}

	estimate, err := capm.EstimateBeta(req.AssetPrices, req.MarketPrices, req.Window)
	if err != nil {
		s.tracer.RecordError(span, err)
		return capm.BetaEstimate{}, err
	}
	if req.Window > estimate.Observations {
		err := utils.NewValidationErrorf("window", "must not exceed %d observations", estimate.Observations)
		s.tracer.RecordError(span, err)
		return capm.BetaEstimate{}, err
	}
	return estimate, nil
}

// Presets returns the built-in presets merged with any stored custom ones.
// A failing preset store degrades to the built-ins.
func (s *LabService) Presets(ctx context.Context) capm.PresetTable {
	if s.presets == nil {
		return s.builtIns
	}
	custom, err := s.presets.ListPresets(ctx)
	if err != nil {
		s.logger.WithOperation("list_presets").Warn("Failed to load custom presets, using built-ins", "error", err.Error())
		return s.builtIns
	}
	return s.builtIns.Merge(custom)
}

// SavePreset stores a custom preset. The default preset is reserved.
func (s *LabService) SavePreset(ctx context.Context, preset capm.Preset) (capm.Preset, error) {
	if s.presets == nil {
		return capm.Preset{}, ErrPresetsUnavailable
	}
	if err := s.validatePreset(preset); err != nil {
		return capm.Preset{}, err
	}

	preset.BuiltIn = false
	record, err := s.presets.Upsert(ctx, preset)
	if err != nil {
		s.logger.WithPreset(preset.Name).Error("Failed to save custom preset", "error", err.Error())
		return capm.Preset{}, err
	}

	s.logger.LogBusinessEvent("preset_saved", map[string]interface{}{
		"preset": record.Preset.Name,
		"beta":   record.Preset.Inputs.Beta,
	})
	return record.Preset, nil
}

// DeletePreset removes a custom preset. Built-ins overridden by the deleted
// preset become visible again.
func (s *LabService) DeletePreset(ctx context.Context, name string) error {
	if s.presets == nil {
		return ErrPresetsUnavailable
	}
	if err := s.presets.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.LogBusinessEvent("preset_deleted", map[string]interface{}{"preset": name})
	return nil
}

// CustomPreset returns a stored custom preset with its modification time.
func (s *LabService) CustomPreset(ctx context.Context, name string) (*database.PresetRecord, error) {
	if s.presets == nil {
		return nil, ErrPresetsUnavailable
	}
	return s.presets.Get(ctx, name)
}

// CreateSession starts a session seeded with the default preset.
func (s *LabService) CreateSession(ctx context.Context) (models.Snapshot, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:         s.newID(),
		Inputs:     s.builtIns[capm.PresetDefault].Inputs,
		Challenge:  s.domains.DefaultChallenge(),
		LastPreset: capm.PresetDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, span := s.tracer.TraceSessionOperation(ctx, "create", session.ID)
	defer span.End()

	if err := s.store.Save(ctx, session); err != nil {
		s.tracer.RecordError(span, err)
		return models.Snapshot{}, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.LogBusinessEvent("session_created", map[string]interface{}{"session_id": session.ID})
	return s.snapshotOf(session), nil
}

// GetSession returns the stored session.
func (s *LabService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return s.store.Get(ctx, id)
}

// Snapshot recomputes the view of a stored session.
func (s *LabService) Snapshot(ctx context.Context, id string) (models.Snapshot, error) {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		return models.Snapshot{}, err
	}
	return s.snapshotOf(session), nil
}

// UpdateInputs lays patch over the session inputs, clamps the result to the
// control bounds and persists it.
func (s *LabService) UpdateInputs(ctx context.Context, id string, patch models.InputPatch) (models.Snapshot, error) {
	if err := validatePatch(patch.Fields()); err != nil {
		return models.Snapshot{}, err
	}

	session, err := s.mutate(ctx, "update_inputs", id, func(session *models.Session) {
		session.Inputs = s.domains.ClampInputs(patch.Apply(session.Inputs))
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	return s.snapshotOf(session), nil
}

// ApplyPreset replaces the session inputs with the named preset tuple.
func (s *LabService) ApplyPreset(ctx context.Context, id, name string) (models.Snapshot, error) {
	inputs, err := capm.ApplyPreset(s.Presets(ctx), name)
	if err != nil {
		return models.Snapshot{}, err
	}

	session, err := s.mutate(ctx, "apply_preset", id, func(session *models.Session) {
		session.Inputs = inputs
		session.LastPreset = name
	})
	if err != nil {
		return models.Snapshot{}, err
	}

	s.logger.LogBusinessEvent("preset_applied", map[string]interface{}{
		"session_id": id,
		"preset":     name,
	})
	return s.snapshotOf(session), nil
}

// Reset restores the default slider values.
func (s *LabService) Reset(ctx context.Context, id string) (models.Snapshot, error) {
	return s.ApplyPreset(ctx, id, capm.PresetDefault)
}

// UpdateChallenge updates the session's challenge inputs and returns the
// recomputed required beta. The inputs are persisted even when the required
// beta is undefined.
func (s *LabService) UpdateChallenge(ctx context.Context, id string, patch models.ChallengePatch) (models.ChallengeView, error) {
	if err := validatePatch(patch.Fields()); err != nil {
		return models.ChallengeView{}, err
	}

	session, err := s.mutate(ctx, "update_challenge", id, func(session *models.Session) {
		session.Challenge = s.domains.ClampChallenge(patch.Apply(session.Challenge))
	})
	if err != nil {
		return models.ChallengeView{}, err
	}

	return s.Challenge(ctx, session.Challenge)
}

// DeleteSession ends a session.
func (s *LabService) DeleteSession(ctx context.Context, id string) error {
	ctx, span := s.tracer.TraceSessionOperation(ctx, "delete", id)
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		s.tracer.RecordError(span, err)
		return err
	}
	s.logger.LogBusinessEvent("session_deleted", map[string]interface{}{"session_id": id})
	return nil
}

type statsReporter interface {
	GetStats() cache.SessionCacheStats
}

// SessionStats reports the hit/miss/set counters of the session store, when
// the store keeps any.
func (s *LabService) SessionStats() (cache.SessionCacheStats, bool) {
	provider, ok := s.store.(statsReporter)
	if !ok {
		return cache.SessionCacheStats{}, false
	}
	return provider.GetStats(), true
}

// mutate is the read-modify-write cycle shared by every session update. The
// store applies it atomically, so concurrent updates of one session compose.
func (s *LabService) mutate(ctx context.Context, operation, id string, apply func(*models.Session)) (*models.Session, error) {
	ctx, span := s.tracer.TraceSessionOperation(ctx, operation, id)
	defer span.End()

	session, err := s.store.Update(ctx, id, func(session *models.Session) {
		apply(session)
		session.UpdatedAt = s.now().UTC()
	})
	if err != nil {
		s.tracer.RecordError(span, err)
		if !errors.Is(err, cache.ErrSessionNotFound) {
			s.logger.WithSessionID(id).Error("Failed to update session", "operation", operation, "error", err.Error())
		}
		return nil, err
	}

	if session.LastPreset != "" {
		s.tracer.RecordPreset(span, session.LastPreset)
	}
	return session, nil
}

func (s *LabService) snapshotOf(session *models.Session) models.Snapshot {
	snapshot := s.Evaluate(session.Inputs)
	snapshot.SessionID = session.ID
	snapshot.UpdatedAt = session.UpdatedAt
	return snapshot
}

func (s *LabService) validatePreset(p capm.Preset) error {
	if !presetNamePattern.MatchString(p.Name) {
		return utils.NewValidationError("name", "must be 1-64 lowercase letters, digits, '-' or '_'")
	}
	if p.Name == capm.PresetDefault {
		return utils.NewValidationError("name", "the default preset cannot be replaced")
	}
	if err := validateInputs(p.Inputs); err != nil {
		return err
	}
	for _, f := range inputFields(p.Inputs) {
		bounds := s.domains[f.name]
		if !bounds.Contains(f.value) {
			return utils.NewValidationErrorf(f.name, "must be between %v and %v", bounds.Min, bounds.Max)
		}
	}
	return nil
}

func challengeView(r capm.ChallengeResult) models.ChallengeView {
	return models.ChallengeView{
		Inputs:         r.Inputs,
		RequiredBeta:   r.RequiredBeta,
		Display:        utils.FormatRatio(r.RequiredBeta),
		Strategy:       r.Strategy,
		Interpretation: r.Interpretation,
	}
}

func buildMetrics(out capm.Outputs) []models.Metric {
	return []models.Metric{
		{
			Key:     "expected_return",
			Label:   "CAPM Expected Return",
			Value:   out.ExpectedReturn,
			Display: utils.FormatPercent(out.ExpectedReturn),
			Help:    "Theoretical return based on market conditions and stock risk",
		},
		{
			Key:     "risk_premium",
			Label:   "Market Risk Premium",
			Value:   out.RiskPremium,
			Display: utils.FormatPercent(out.RiskPremium),
			Help:    "Extra return investors demand for bearing market risk",
		},
		{
			Key:     "alpha",
			Label:   "Alpha (Excess Return)",
			Value:   out.Alpha,
			Display: utils.FormatPercent(out.Alpha),
			Delta:   out.Performance,
			Help:    "Real return minus expected return - measures stock performance",
		},
	}
}

func buildInsights(in capm.Inputs, out capm.Outputs) []string {
	insights := make([]string, 0, 2)
	switch {
	case in.Beta < 0:
		insights = append(insights, "β < 0: Moves against the market → Required return below the risk-free rate")
	case math.Abs(in.Beta-1) < 1e-9:
		insights = append(insights, "β = 1: Moves with the market → Required return equals the market return")
	case in.Beta < 1:
		insights = append(insights, "β < 1: Safer than market → Lower required return")
	default:
		insights = append(insights, "β > 1: Riskier than market → Higher required return")
	}
	if out.Alpha < 0 {
		insights = append(insights, "α < 0: Falling short of market expectations")
	} else {
		insights = append(insights, "α ≥ 0: Beating market expectations")
	}
	return insights
}

type field struct {
	name  string
	value float64
}

func inputFields(in capm.Inputs) []field {
	return []field{
		{capm.ControlRiskFreeRate, in.RiskFreeRate},
		{capm.ControlBeta, in.Beta},
		{capm.ControlMarketReturn, in.MarketReturn},
		{capm.ControlActualReturn, in.ActualReturn},
	}
}

func validateFields(fields []field) error {
	for _, f := range fields {
		if err := utils.ValidateFinite(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func validateInputs(in capm.Inputs) error {
	return validateFields(inputFields(in))
}

func validateChallenge(c capm.ChallengeInputs) error {
	return validateFields([]field{
		{capm.ControlChallengeRiskFreeRate, c.RiskFreeRate},
		{capm.ControlChallengeMarketReturn, c.MarketReturn},
		{capm.ControlChallengeTargetReturn, c.TargetReturn},
	})
}

// validateSnapshot rejects finite inputs whose results overflow.
func validateSnapshot(snapshot models.Snapshot) error {
	if err := validateFields([]field{
		{"expected_return", snapshot.Outputs.ExpectedReturn},
		{"risk_premium", snapshot.Outputs.RiskPremium},
		{"alpha", snapshot.Outputs.Alpha},
	}); err != nil {
		return err
	}
	return validateChart(snapshot.Chart)
}

func validateChart(chart capm.ChartData) error {
	if err := utils.ValidateFinite("expected_return", chart.SelectedStock.ExpectedReturn); err != nil {
		return err
	}
	for _, p := range chart.Line {
		if err := validateFields([]field{{"beta", p.Beta}, {"expected_return", p.ExpectedReturn}}); err != nil {
			return err
		}
	}
	return nil
}

func validatePatch(fields []models.PatchField) error {
	for _, f := range fields {
		if f.Value == nil {
			continue
		}
		if err := utils.ValidateFinite(f.Name, *f.Value); err != nil {
			return err
		}
	}
	return nil
}
