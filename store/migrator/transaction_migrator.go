package migrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/charmbracelet/log"
)

var ErrImportUnsupported = errors.New("target transaction log cannot import records")

const transactionPageSize = 500

// TransactionMigrator copies the audit history page by page, oldest records
// last, keeping ids and timestamps.
type TransactionMigrator struct {
	Source store_interface.TransactionLog
	Target store_interface.TransactionLog
	Logger *log.Logger
}

func (t *TransactionMigrator) Migrate(ctx context.Context) (int, error) {
	importer, ok := t.Target.(store_interface.TransactionImporter)
	if !ok {
		return 0, ErrImportUnsupported
	}

	copied := 0
	for {
		page, err := t.Source.Transactions(ctx, store_interface.TransactionQuery{
			Limit:  transactionPageSize,
			Offset: copied,
		})
		if err != nil {
			return copied, fmt.Errorf("failed to read transactions at offset %d: %w", copied, err)
		}
		if len(page) == 0 {
			break
		}
		if err := importer.ImportTransactions(ctx, page); err != nil {
			return copied, fmt.Errorf("failed to import transactions at offset %d: %w", copied, err)
		}
		copied += len(page)
		if len(page) < transactionPageSize {
			break
		}
	}

	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("transaction migration complete", "transactions", copied)
	return copied, nil
}
