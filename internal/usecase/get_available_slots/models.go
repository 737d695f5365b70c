package get_available_slots

import (
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	BusinessID int64      // ID бизнеса
	ServiceID  int64      // ID услуги
	Date       types.Date // Дата для получения слотов
	StaffID    *int64     // Сотрудник (учитывается только в области конфликтов "staff")
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date       types.Date // Дата, на которую запрашивались слоты
	BusinessID int64      // ID бизнеса
	ServiceID  int64      // ID услуги
	Slots      []Slot     // Только доступные слоты, по возрастанию времени начала
}

// Slot модель временного слота
type Slot struct {
	StartTime types.TimeString // Время начала слота (например, "10:00")
	EndTime   types.TimeString // Время окончания слота
}
