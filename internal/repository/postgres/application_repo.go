package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

const applicationColumns = `id, user_id, plan_id, simulation_id, product_id, status, amount, term_months,
	monthly_payment, down_payment, notes, rejection_reason, submitted_at, approved_at, rejected_at,
	created_at, updated_at`

// CreditApplicationRepository implements domain.CreditApplicationRepository
// using PostgreSQL
type CreditApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewCreditApplicationRepository creates a new CreditApplicationRepository
func NewCreditApplicationRepository(pool *pgxpool.Pool) *CreditApplicationRepository {
	return &CreditApplicationRepository{pool: pool}
}

// Create inserts a Draft application with its creation record and outbox event
func (r *CreditApplicationRepository) Create(ctx context.Context, app *domain.CreditApplication, initial *domain.ApplicationStatusRecord) (*domain.CreditApplication, error) {
	n, err := numerics(app.Amount, app.MonthlyPayment)
	if err != nil {
		return nil, err
	}
	down, err := decimalPtrToPgNumeric(app.DownPayment)
	if err != nil {
		return nil, err
	}

	var created *domain.CreditApplication
	err = WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO credit_applications (user_id, plan_id, simulation_id, product_id, status, amount,
				term_months, monthly_payment, down_payment, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()), COALESCE($11, NOW()))
			RETURNING `+applicationColumns,
			uuidToPg(app.UserID), app.PlanID, app.SimulationID, app.ProductID, string(app.Status), n[0],
			app.TermMonths, n[1], down, app.Notes, nullableTime(app.CreatedAt),
		)
		saved, err := scanApplication(row)
		if err != nil {
			return err
		}

		initial.ApplicationID = saved.ID
		if err := insertStatusRecord(ctx, tx, initial); err != nil {
			return err
		}
		if err := insertStatusEvent(ctx, tx, domain.NewStatusEvent(saved, initial)); err != nil {
			return err
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an application by its ID
func (r *CreditApplicationRepository) GetByID(ctx context.Context, id int32) (*domain.CreditApplication, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM credit_applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		return nil, notFound(err, domain.ErrApplicationNotFound)
	}
	return app, nil
}

// ListByUser retrieves a user's applications, newest first
func (r *CreditApplicationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.CreditApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+`
		FROM credit_applications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, uuidToPg(userID), limit)
}

// ListByStatus retrieves applications in a status, oldest first
func (r *CreditApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit int) ([]*domain.CreditApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+`
		FROM credit_applications
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2`, string(status), limit)
}

func (r *CreditApplicationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.CreditApplication, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]*domain.CreditApplication, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateDraftNotes replaces the notes of a Draft application. Applications in
// any other status are left unchanged.
func (r *CreditApplicationRepository) UpdateDraftNotes(ctx context.Context, id int32, notes string) (*domain.CreditApplication, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE credit_applications
		SET notes = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+applicationColumns, id, notes)
	app, err := scanApplication(row)
	if err == nil {
		return app, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	// Distinguish a missing application from one that left Draft
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrApplicationNotDraft
}

// Transition locks the application row, lets fn decide the change and writes
// the new status, its history record and the outbox event in one transaction.
// The status update is guarded by the status fn observed.
func (r *CreditApplicationRepository) Transition(ctx context.Context, id int32, fn domain.TransitionFunc) (*domain.CreditApplication, *domain.ApplicationStatusRecord, error) {
	var (
		updated *domain.CreditApplication
		record  *domain.ApplicationStatusRecord
	)
	err := WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM credit_applications WHERE id = $1 FOR UPDATE`, id)
		app, err := scanApplication(row)
		if err != nil {
			return notFound(err, domain.ErrApplicationNotFound)
		}

		observed := app.Status
		rec, err := fn(app)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE credit_applications
			SET status = $3, rejection_reason = $4, submitted_at = $5, approved_at = $6,
				rejected_at = $7, updated_at = $8
			WHERE id = $1 AND status = $2`,
			id, string(observed), string(app.Status), app.RejectionReason,
			app.SubmittedAt, app.ApprovedAt, app.RejectedAt, app.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.ConcurrentTransitionConflictError{ApplicationID: id}
		}

		rec.ApplicationID = app.ID
		if err := insertStatusRecord(ctx, tx, rec); err != nil {
			return err
		}
		if err := insertStatusEvent(ctx, tx, domain.NewStatusEvent(app, rec)); err != nil {
			return err
		}
		updated, record = app, rec
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, record, nil
}

// History retrieves the status history of an application, oldest first
func (r *CreditApplicationRepository) History(ctx context.Context, id int32) ([]*domain.ApplicationStatusRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, previous_status, status, note, actor_id, created_at
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.ApplicationStatusRecord, 0)
	for rows.Next() {
		var (
			rec      domain.ApplicationStatusRecord
			previous *string
			status   string
			actorID  pgtype.UUID
		)
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &previous, &status, &rec.Note, &actorID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if previous != nil {
			prev := domain.ApplicationStatus(*previous)
			rec.PreviousStatus = &prev
		}
		rec.Status = domain.ApplicationStatus(status)
		rec.ActorID = pgToUUIDPtr(actorID)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// AddNote appends a staff note
func (r *CreditApplicationRepository) AddNote(ctx context.Context, note *domain.ApplicationNote) (*domain.ApplicationNote, error) {
	saved := *note
	err := r.pool.QueryRow(ctx, `
		INSERT INTO application_notes (application_id, author_id, body, created_at)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
		RETURNING id, created_at`,
		note.ApplicationID, uuidToPg(note.AuthorID), note.Body, nullableTime(note.CreatedAt),
	).Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListNotes retrieves the notes of an application, oldest first
func (r *CreditApplicationRepository) ListNotes(ctx context.Context, applicationID int32) ([]*domain.ApplicationNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, author_id, body, created_at
		FROM application_notes
		WHERE application_id = $1
		ORDER BY id`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]*domain.ApplicationNote, 0)
	for rows.Next() {
		var (
			note     domain.ApplicationNote
			authorID pgtype.UUID
		)
		if err := rows.Scan(&note.ID, &note.ApplicationID, &authorID, &note.Body, &note.CreatedAt); err != nil {
			return nil, err
		}
		note.AuthorID = uuid.UUID(authorID.Bytes)
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}

func insertStatusRecord(ctx context.Context, q Querier, rec *domain.ApplicationStatusRecord) error {
	var previous *string
	if rec.PreviousStatus != nil {
		p := string(*rec.PreviousStatus)
		previous = &p
	}
	err := q.QueryRow(ctx, `
		INSERT INTO application_status_history (application_id, previous_status, status, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, created_at`,
		rec.ApplicationID, previous, string(rec.Status), rec.Note, uuidPtrToPg(rec.ActorID), nullableTime(rec.CreatedAt),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func insertStatusEvent(ctx context.Context, q Querier, event *domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO status_event_outbox (id, application_id, history_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuidToPg(event.ID), event.ApplicationID, event.Record.ID, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}
	return nil
}

func scanApplication(row pgx.Row) (*domain.CreditApplication, error) {
	var (
		a                   domain.CreditApplication
		userID              pgtype.UUID
		status              string
		term                int32
		amount, monthly     pgtype.Numeric
		down                pgtype.Numeric
		submitted, approved *time.Time
		rejected            *time.Time
	)
	if err := row.Scan(&a.ID, &userID, &a.PlanID, &a.SimulationID, &a.ProductID, &status, &amount, &term,
		&monthly, &down, &a.Notes, &a.RejectionReason, &submitted, &approved, &rejected,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.UserID = uuid.UUID(userID.Bytes)
	a.Status = domain.ApplicationStatus(status)
	a.TermMonths = int(term)
	a.Amount = pgNumericToDecimal(amount)
	a.MonthlyPayment = pgNumericToDecimal(monthly)
	a.DownPayment = pgNumericToDecimalPtr(down)
	a.SubmittedAt = submitted
	a.ApprovedAt = approved
	a.RejectedAt = rejected
	return &a, nil
}
