package booking

import (
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

var (
	// ErrNoTransaction возвращается, если блокировка дня запрошена вне транзакции
	ErrNoTransaction = fmt.Errorf("%w: booking.repository: advisory lock requires a transaction", domain.ErrStorage)

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = fmt.Errorf("%w: booking.repository: failed to build query", domain.ErrStorage)

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = fmt.Errorf("%w: booking.repository: failed to execute query", domain.ErrStorage)

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = fmt.Errorf("%w: booking.repository: failed to scan row", domain.ErrStorage)
)
