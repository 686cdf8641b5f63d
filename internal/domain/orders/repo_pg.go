package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const orderCols = `id, fhir_id, patient_id, order_number, code_display, status,
	fulfiller_status, cancel_reason, date_activated, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.FHIRID, &o.PatientID, &o.OrderNumber, &o.CodeDisplay, &o.Status,
		&o.FulfillerStatus, &o.CancelReason, &o.DateActivated, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	if o.FHIRID == "" {
		o.FHIRID = o.ID.String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinical_order (id, fhir_id, patient_id, order_number, code_display, status,
			fulfiller_status, cancel_reason, date_activated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		o.ID, o.FHIRID, o.PatientID, o.OrderNumber, o.CodeDisplay, o.Status,
		o.FulfillerStatus, o.CancelReason, o.DateActivated)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM clinical_order WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *repoPG) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM clinical_order WHERE order_number = $1`, orderNumber)
	return scanOrder(row)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderCols+` FROM clinical_order
		WHERE patient_id = $1
		ORDER BY date_activated DESC NULLS LAST, created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateFulfillerStatus(ctx context.Context, id uuid.UUID, status, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE clinical_order
		SET fulfiller_status = $2, cancel_reason = $3, updated_at = now()
		WHERE id = $1`,
		id, status, reason)
	return err
}
