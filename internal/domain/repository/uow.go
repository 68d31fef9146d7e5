package repository

import "context"

// Repositories agrupa los repos que participan del core.
type Repositories struct {
	Accounts AccountRepository
	Links    SocialLinkRepository
	Audit    AuditRepository
}

// DataAccess expone los repos y la unidad de trabajo transaccional.
//
// El camino mutante del reconciliation engine corre entero dentro de
// WithinTx (read-committed o mejor): si fn retorna error, todo rollback.
type DataAccess interface {
	// Repos retorna repos sin transacción (lecturas, sweep por registro).
	Repos() Repositories

	// WithinTx ejecuta fn dentro de una transacción. Los repos que recibe
	// fn están ligados a esa transacción.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error

	// Close libera recursos del driver.
	Close()
}
