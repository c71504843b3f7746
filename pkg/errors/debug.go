package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
)

// PostgresDetail carries the driver fields of a Postgres failure.
type PostgresDetail struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ProcessorDetail carries the payment processor fields of a failed call.
type ProcessorDetail struct {
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
	Decline    string `json:"decline_code,omitempty"`
	Param      string `json:"param,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// ErrorDump is a log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string           `json:"top_message"`
	Code       Code             `json:"code,omitempty"`
	Chain      []string         `json:"chain,omitempty"`
	Postgres   *PostgresDetail  `json:"postgres,omitempty"`
	Processor  *ProcessorDetail `json:"processor,omitempty"`
}

// Dump walks err and extracts the typed code plus any driver or processor
// metadata found in the chain.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Postgres = postgresDetail(err)

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		d.Processor = &ProcessorDetail{
			Type:       string(stripeErr.Type),
			Code:       string(stripeErr.Code),
			Decline:    string(stripeErr.DeclineCode),
			Param:      stripeErr.Param,
			RequestID:  stripeErr.RequestID,
			HTTPStatus: stripeErr.HTTPStatusCode,
		}
	}
	return d
}

// PostgresCode returns the SQLSTATE of the first Postgres error in the chain.
func PostgresCode(err error) (code, constraint string, ok bool) {
	detail := postgresDetail(err)
	if detail == nil {
		return "", "", false
	}
	return detail.Code, detail.Constraint, true
}

func postgresDetail(err error) *PostgresDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresDetail{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields flattens the dump into log fields, omitting empty driver sections.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if pg := d.Postgres; pg != nil {
		fields["pg_code"] = pg.Code
		fields["pg_constraint"] = pg.Constraint
		fields["pg_table"] = pg.Table
		fields["pg_column"] = pg.Column
		fields["pg_detail"] = pg.Detail
		fields["pg_message"] = pg.Message
	}
	if p := d.Processor; p != nil {
		fields["processor_type"] = p.Type
		fields["processor_code"] = p.Code
		fields["processor_decline_code"] = p.Decline
		fields["processor_request_id"] = p.RequestID
		fields["processor_http_status"] = p.HTTPStatus
	}
	return fields
}
