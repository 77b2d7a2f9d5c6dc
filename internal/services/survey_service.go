package services

import (
	"context"
	"regexp"
	"strings"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Accepted values for the enumerated survey fields.
var (
	SurveyCategories     = []string{"MSME", "Educational Institutions", "Datacentres"}
	SurveyModelSizes     = []string{">=3B", "7B", "13B", "34B", "70B", "180B", "450B", "700B"}
	SurveyWorkloads      = []string{"Finetuning", "Inference", "Both"}
	SurveyInfrastructure = []string{"On-premise", "Private Cloud", "No Existing AI Infrastructure"}
)

const participantsHint = `Please use "Name – valid@email.com" in Participants.`

// participantSeparator matches a hyphen or en dash with optional spacing.
var participantSeparator = regexp.MustCompile(`\s*[-–]\s*`)

// SurveyRequest is a submission from the public infrastructure survey.
type SurveyRequest struct {
	CustomerName     string `json:"customerName" validate:"required"`
	CustomerLocation string `json:"customerLocation" validate:"required"`
	Category         string `json:"category"`
	Participants     string `json:"participants"`
	BaseModelSize    string `json:"baseModelSize"`
	IsCustom         bool   `json:"isCustom"`
	OnHuggingFace    bool   `json:"onHuggingFace"`
	HFLink           string `json:"hfLink"`
	Architecture     string `json:"architecture"`
	Workloads        string `json:"workloads"`
	InfraType        string `json:"infraType"`
	Motherboard      string `json:"motherboard"`
	Processor        string `json:"processor"`
	DRAM             string `json:"dram"`
	GPUs             string `json:"gpus"`
	OS               string `json:"os"`
}

// SurveyService stores customer survey submissions.
type SurveyService struct {
	repo     repositories.SurveyRepository
	validate *validator.Validate
	log      *zap.Logger
}

// NewSurveyService creates a new SurveyService.
func NewSurveyService(repo repositories.SurveyRepository, log *zap.Logger) *SurveyService {
	return &SurveyService{repo: repo, validate: validator.New(), log: log}
}

// Submit validates and stores a survey, returning its id.
func (s *SurveyService) Submit(ctx context.Context, req SurveyRequest) (uint, error) {
	if strings.TrimSpace(req.Participants) == "" {
		return 0, apperror.BadRequest("Participants field is required and must be a string.")
	}
	name, email, ok := s.parseParticipant(req.Participants)
	if !ok {
		return 0, apperror.BadRequest(participantsHint)
	}

	if err := oneOf("category", req.Category, SurveyCategories); err != nil {
		return 0, err
	}
	if err := oneOf("baseModelSize", req.BaseModelSize, SurveyModelSizes); err != nil {
		return 0, err
	}
	if err := oneOf("workload", req.Workloads, SurveyWorkloads); err != nil {
		return 0, err
	}
	if err := oneOf("infraType", req.InfraType, SurveyInfrastructure); err != nil {
		return 0, err
	}

	survey := &models.CustomerSurvey{
		CustomerName:     req.CustomerName,
		CustomerLocation: req.CustomerLocation,
		Category:         req.Category,
		ParticipantName:  name,
		ParticipantEmail: email,
		BaseModelSize:    req.BaseModelSize,
		IsCustom:         yesNo(req.IsCustom),
		OnHuggingFace:    yesNo(req.OnHuggingFace),
		HFLink:           req.HFLink,
		Architecture:     req.Architecture,
		Workloads:        req.Workloads,
		InfraType:        req.InfraType,
		Motherboard:      req.Motherboard,
		Processor:        req.Processor,
		DRAM:             req.DRAM,
		GPUs:             req.GPUs,
		OS:               req.OS,
	}
	if err := s.repo.Create(ctx, survey); err != nil {
		return 0, err
	}
	s.log.Info("Customer survey stored", zap.Uint("id", survey.ID), zap.String("category", survey.Category))
	return survey.ID, nil
}

// parseParticipant extracts the name and email of the first participant in
// a "Name – email; Name – email" list. Names may themselves contain dashes,
// so each separator is tried until the remainder is a valid address.
func (s *SurveyService) parseParticipant(participants string) (name, email string, ok bool) {
	first := strings.TrimSpace(strings.Split(participants, ";")[0])
	for _, loc := range participantSeparator.FindAllStringIndex(first, -1) {
		candidate := strings.TrimSpace(first[loc[1]:])
		if s.validate.Var(candidate, "required,email") == nil {
			return strings.TrimSpace(first[:loc[0]]), candidate, true
		}
	}
	return "", "", false
}

func oneOf(field, value string, allowed []string) error {
	for _, v := range allowed {
		if v == value {
			return nil
		}
	}
	return apperror.BadRequest("Invalid %s. Must be one of: %s", field, strings.Join(allowed, ", "))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
