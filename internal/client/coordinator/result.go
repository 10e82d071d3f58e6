package coordinator

import (
	"errors"
	"net/http"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/pkg/api"
)

// Op вид записи
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// State итоговое состояние записи
type State int

const (
	// StateSucceeded сервер подтвердил запись
	StateSucceeded State = iota
	// StateFailedFallback сервер запись не принял, изменение сохранено локально
	StateFailedFallback
)

func (s State) String() string {
	if s == StateFailedFallback {
		return "failed_fallback"
	}
	return "succeeded"
}

// Kind класс ошибки удаленной записи
type Kind int

const (
	KindNone Kind = iota
	// KindNetwork сервер недоступен (сеть, таймаут)
	KindNetwork
	// KindServer сервер ответил 5xx
	KindServer
	// KindValidation сервер отклонил данные (4xx кроме 404)
	KindValidation
	// KindNotFound сущности на сервере нет (404)
	KindNotFound
	// KindLocalOnly сущность с локальным id: сервер о ней не знает, запрос не отправлялся
	KindLocalOnly
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindLocalOnly:
		return "local_only"
	default:
		return "unknown"
	}
}

// Сообщения для пользователя
const (
	MsgSaved            = "saved"
	MsgDeleted          = "deleted"
	MsgSavedLocally     = "saved locally, not yet synced"
	MsgValidation       = "validation error: saved locally pending correction"
	MsgNotFound         = "no longer exists on the server, removed locally"
	MsgAlreadyDeleted   = "already deleted on the server"
	MsgDeletePending    = "deleted locally, not yet confirmed by the server"
	MsgLocalOnly        = "saved locally, entity is not on the server yet"
	MsgLocalOnlyDeleted = "deleted locally, entity was never on the server"
)

// Result итог одной записи
type Result struct {
	Err    error
	Entity models.Entity
	ID     string
	// Message сообщение для пользователя
	Message string
	Op      Op
	State   State
	Kind    Kind
	// PendingDelete удаление показано пользователю, но сервер его не подтвердил
	PendingDelete bool
}

// Synced сообщает, что изменение подтверждено сервером
func (r Result) Synced() bool {
	return r.State == StateSucceeded && r.Kind != KindLocalOnly
}

// Classify определяет класс ошибки удаленного вызова
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	code := api.StatusCode(err)
	switch {
	case code == http.StatusNotFound:
		return KindNotFound
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindValidation
	case code != 0:
		return KindServer
	}

	// Нет ответа сервера: сеть, таймаут или отмена контекста
	return KindNetwork
}

func fallbackMessage(kind Kind, err error) string {
	switch kind {
	case KindValidation:
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.Message != "" {
			return MsgValidation + ": " + statusErr.Message
		}
		return MsgValidation
	case KindNotFound:
		return MsgNotFound
	default:
		return MsgSavedLocally
	}
}
