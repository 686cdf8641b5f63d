package conditions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const condCols = `id, fhir_id, patient_id, code_system, code_value, code_display,
	clinical_status, onset_datetime, abatement_datetime, recorded_date,
	created_at, updated_at`

func scanCondition(row pgx.Row) (*Condition, error) {
	var c Condition
	err := row.Scan(&c.ID, &c.FHIRID, &c.PatientID, &c.CodeSystem, &c.CodeValue, &c.CodeDisplay,
		&c.ClinicalStatus, &c.OnsetDatetime, &c.AbatementDatetime, &c.RecordedDate,
		&c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	if c.FHIRID == "" {
		c.FHIRID = c.ID.String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO condition (id, fhir_id, patient_id, code_system, code_value, code_display,
			clinical_status, onset_datetime, abatement_datetime, recorded_date,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`,
		c.ID, c.FHIRID, c.PatientID, c.CodeSystem, c.CodeValue, c.CodeDisplay,
		c.ClinicalStatus, c.OnsetDatetime, c.AbatementDatetime, c.RecordedDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Condition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+condCols+` FROM condition WHERE id = $1`, id)
	return scanCondition(row)
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Condition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+condCols+` FROM condition WHERE fhir_id = $1`, fhirID)
	return scanCondition(row)
}

func (r *repoPG) Update(ctx context.Context, c *Condition) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE condition
		SET code_system = $2, code_value = $3, code_display = $4, clinical_status = $5,
			onset_datetime = $6, abatement_datetime = $7, recorded_date = $8, updated_at = now()
		WHERE id = $1`,
		c.ID, c.CodeSystem, c.CodeValue, c.CodeDisplay, c.ClinicalStatus,
		c.OnsetDatetime, c.AbatementDatetime, c.RecordedDate)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM condition WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Condition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+condCols+` FROM condition
		WHERE patient_id = $1
		ORDER BY recorded_date NULLS LAST, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM condition WHERE patient_id = $1`, patientID).Scan(&n)
	return n, err
}
