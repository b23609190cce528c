package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// WorkspaceRepository handles workspace operations.
type WorkspaceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkspaceRepository(db *sql.DB, logger *slog.Logger) *WorkspaceRepository {
	return &WorkspaceRepository{db: db, logger: logger}
}

func (wr *WorkspaceRepository) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	query := `
		SELECT id, name, sender_email, outbound_phone, booking_link, review_link,
		       brand_tone, industry, services, unique_selling_points,
		       special_instructions, ai_monthly_token_limit
		FROM workspaces
		WHERE id = $1
	`

	var (
		workspace    models.Workspace
		servicesJSON []byte
		uspJSON      []byte
	)

	err := wr.db.QueryRowContext(ctx, query, id).Scan(
		&workspace.ID, &workspace.Name, &workspace.SenderEmail, &workspace.OutboundPhone,
		&workspace.BookingLink, &workspace.ReviewLink, &workspace.BrandTone,
		&workspace.Industry, &servicesJSON, &uspJSON,
		&workspace.SpecialInstructions, &workspace.AIMonthlyTokenLimit,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("WorkspaceByID", "workspace", id, persistence.ErrWorkspaceNotFound)
		}

		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}

	if err := json.Unmarshal(servicesJSON, &workspace.Services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal services: %w", err)
	}

	if err := json.Unmarshal(uspJSON, &workspace.UniqueSellingPoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal unique selling points: %w", err)
	}

	return &workspace, nil
}

func (wr *WorkspaceRepository) Save(ctx context.Context, workspace *models.Workspace) error {
	if workspace.ID == "" {
		workspace.ID = uuid.New().String()
	}

	servicesJSON, err := json.Marshal(workspace.Services)
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}

	uspJSON, err := json.Marshal(workspace.UniqueSellingPoints)
	if err != nil {
		return fmt.Errorf("failed to marshal unique selling points: %w", err)
	}

	query := `
		INSERT INTO workspaces (id, name, sender_email, outbound_phone, booking_link, review_link,
		                        brand_tone, industry, services, unique_selling_points,
		                        special_instructions, ai_monthly_token_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sender_email = EXCLUDED.sender_email,
			outbound_phone = EXCLUDED.outbound_phone,
			booking_link = EXCLUDED.booking_link,
			review_link = EXCLUDED.review_link,
			brand_tone = EXCLUDED.brand_tone,
			industry = EXCLUDED.industry,
			services = EXCLUDED.services,
			unique_selling_points = EXCLUDED.unique_selling_points,
			special_instructions = EXCLUDED.special_instructions,
			ai_monthly_token_limit = EXCLUDED.ai_monthly_token_limit
	`

	_, err = wr.db.ExecContext(ctx, query,
		workspace.ID, workspace.Name, workspace.SenderEmail, workspace.OutboundPhone,
		workspace.BookingLink, workspace.ReviewLink, workspace.BrandTone,
		workspace.Industry, servicesJSON, uspJSON,
		workspace.SpecialInstructions, workspace.AIMonthlyTokenLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	return nil
}
