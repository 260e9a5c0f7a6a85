package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/copilot/models"
)

// ErrPlanNotFound is returned when no plan file exists for an ID.
var ErrPlanNotFound = errors.New("business plan not found")

// Manager persists business plans and chat histories as per-plan JSON files.
// There is no locking or atomic replace; the deployment model is single-user
// and concurrent writers are an accepted risk.
type Manager struct {
	dataDir        string
	maxChatHistory int
}

// NewManager creates the manager and ensures the data directory exists.
func NewManager(dataDir string, maxChatHistory int) (*Manager, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if maxChatHistory <= 0 {
		maxChatHistory = 100
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Manager{dataDir: dataDir, maxChatHistory: maxChatHistory}, nil
}

func (m *Manager) planPath(planID string) string {
	return filepath.Join(m.dataDir, "business_plan_"+planID+".json")
}

func (m *Manager) chatPath(planID string) string {
	return filepath.Join(m.dataDir, "chat_history_"+planID+".json")
}

// SavePlan writes the plan to disk, allocating a plan ID when none is given,
// and merging in plan_id/created_at/last_updated/version metadata. The plan
// ID is returned for future reference.
func (m *Manager) SavePlan(plan models.BusinessPlan, planID string) (string, error) {
	if planID == "" {
		planID = GeneratePlanID(plan)
	}

	doc := models.BusinessPlan{}
	doc.Merge(plan)
	doc["plan_id"] = planID
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = time.Now().Format(time.RFC3339)
	}
	doc["last_updated"] = time.Now().Format(time.RFC3339)
	if _, ok := doc["version"]; !ok {
		doc["version"] = 1
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling business plan: %w", err)
	}
	if err := os.WriteFile(m.planPath(planID), raw, 0o644); err != nil {
		return "", fmt.Errorf("writing business plan: %w", err)
	}
	return planID, nil
}

// LoadPlan reads one plan document by ID.
func (m *Manager) LoadPlan(planID string) (models.BusinessPlan, error) {
	raw, err := os.ReadFile(m.planPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("reading business plan: %w", err)
	}
	var plan models.BusinessPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parsing business plan: %w", err)
	}
	return plan, nil
}

// PlanSummary is the listing view of one saved plan.
type PlanSummary struct {
	PlanID       string       `json:"plan_id"`
	BusinessName string       `json:"business_name"`
	Industry     string       `json:"industry"`
	Location     string       `json:"location"`
	CreatedAt    string       `json:"created_at"`
	LastUpdated  string       `json:"last_updated"`
	Stage        models.Stage `json:"stage"`
}

// ListPlans returns summaries of every saved plan, most recently updated
// first. Corrupted files are skipped.
func (m *Manager) ListPlans() ([]PlanSummary, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var plans []PlanSummary
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "business_plan_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.dataDir, name))
		if err != nil {
			continue
		}
		var plan models.BusinessPlan
		if err := json.Unmarshal(raw, &plan); err != nil {
			continue
		}
		summary := PlanSummary{
			PlanID:       plan.StringField("plan_id"),
			BusinessName: plan.StringField("business_name"),
			Industry:     plan.StringField("industry"),
			Location:     plan.StringField("location"),
			CreatedAt:    plan.StringField("created_at"),
			LastUpdated:  plan.StringField("last_updated"),
			Stage:        InferStage(plan),
		}
		if summary.BusinessName == "" {
			summary.BusinessName = "Unnamed Business"
		}
		plans = append(plans, summary)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].LastUpdated > plans[j].LastUpdated
	})
	return plans, nil
}

// chatDocument is the on-disk shape of a chat history file.
type chatDocument struct {
	PlanID       string               `json:"plan_id"`
	SavedAt      string               `json:"saved_at"`
	MessageCount int                  `json:"message_count"`
	ChatHistory  []models.ChatMessage `json:"chat_history"`
}

// SaveChat writes the chat history for a plan, truncated to the configured
// maximum number of trailing messages.
func (m *Manager) SaveChat(planID string, history []models.ChatMessage) error {
	if planID == "" {
		planID = "default"
	}
	if len(history) > m.maxChatHistory {
		history = history[len(history)-m.maxChatHistory:]
	}
	doc := chatDocument{
		PlanID:       planID,
		SavedAt:      time.Now().Format(time.RFC3339),
		MessageCount: len(history),
		ChatHistory:  history,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling chat history: %w", err)
	}
	if err := os.WriteFile(m.chatPath(planID), raw, 0o644); err != nil {
		return fmt.Errorf("writing chat history: %w", err)
	}
	return nil
}

// LoadChat reads the chat history for a plan; a missing file is an empty
// history, not an error.
func (m *Manager) LoadChat(planID string) ([]models.ChatMessage, error) {
	raw, err := os.ReadFile(m.chatPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat history: %w", err)
	}
	var doc chatDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing chat history: %w", err)
	}
	return doc.ChatHistory, nil
}

// DeletePlan removes a plan file and its associated chat history.
func (m *Manager) DeletePlan(planID string) error {
	if err := os.Remove(m.planPath(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting business plan: %w", err)
	}
	if err := os.Remove(m.chatPath(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting chat history: %w", err)
	}
	return nil
}

// ExportBundle is the complete exportable record of one plan, consumed by
// the PDF-printing front end.
type ExportBundle struct {
	BusinessPlan  models.BusinessPlan  `json:"business_plan"`
	ChatHistory   []models.ChatMessage `json:"chat_history"`
	ExportedAt    string               `json:"exported_at"`
	ExportVersion string               `json:"export_version"`
}

// Export assembles the plan and its chat history into one bundle.
func (m *Manager) Export(planID string) (*ExportBundle, error) {
	plan, err := m.LoadPlan(planID)
	if err != nil {
		return nil, err
	}
	history, err := m.LoadChat(planID)
	if err != nil {
		return nil, err
	}
	return &ExportBundle{
		BusinessPlan:  plan,
		ChatHistory:   history,
		ExportedAt:    time.Now().Format(time.RFC3339),
		ExportVersion: "1.0",
	}, nil
}

// Stats summarises what is on disk.
type Stats struct {
	TotalPlans  int     `json:"total_plans"`
	TotalFiles  int     `json:"total_files"`
	TotalSizeMB float64 `json:"total_size_mb"`
	DataDir     string  `json:"data_directory"`
	Status      string  `json:"status"`
}

// StorageStats reports plan counts and disk usage for the data directory.
func (m *Manager) StorageStats() (Stats, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return Stats{}, fmt.Errorf("reading data directory: %w", err)
	}
	stats := Stats{DataDir: m.dataDir}
	var totalSize int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		stats.TotalFiles++
		totalSize += info.Size()
		if strings.HasPrefix(e.Name(), "business_plan_") {
			stats.TotalPlans++
		}
	}
	stats.TotalSizeMB = float64(totalSize) / (1024 * 1024)
	if stats.TotalPlans > 0 {
		stats.Status = "active"
	} else {
		stats.Status = "empty"
	}
	return stats, nil
}

// CleanupOldFiles removes files whose modification time is older than the
// given number of days. Returns how many files were removed.
func (m *Manager) CleanupOldFiles(days int) (int, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return 0, fmt.Errorf("reading data directory: %w", err)
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dataDir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
