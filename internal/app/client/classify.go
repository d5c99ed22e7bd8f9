package client

import (
	"errors"
	"strings"

	"sitekeeper/internal/domain/attendance"
)

// Outcome результат отправки одной отметки
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeConnectivity
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeConnectivity:
		return "connectivity"
	default:
		return "rejected"
	}
}

// Kind категория ошибки для SyncResult
func (o Outcome) Kind() attendance.ErrorKind {
	switch o {
	case OutcomeConnectivity:
		return attendance.KindConnectivity
	case OutcomeRejected:
		return attendance.KindServerRejection
	case OutcomeDuplicate:
		return attendance.KindDuplicateConflict
	default:
		return attendance.KindNone
	}
}

// Старые версии сервера отвечают на повтор только текстом ошибки.
var duplicateMarkers = []string{"already marked", "duplicate", "locked"}

// classify определяет исход отправки одной отметки по ответу сервера
func classify(resp attendance.SyncResponse, err error) (Outcome, error) {
	if err != nil {
		if errors.Is(err, attendance.ErrEmptyResponse) {
			return OutcomeRejected, err
		}
		if IsConnectivity(err) {
			return OutcomeConnectivity, err
		}

		var re *RemoteError
		if errors.As(err, &re) && isDuplicate(re.Code, re.Message) {
			return OutcomeDuplicate, err
		}
		return OutcomeRejected, err
	}

	if len(resp.Errors) > 0 {
		itemErr := resp.Errors[0]
		cause := errors.New(itemErr.Error)
		if isDuplicate(itemErr.Code, itemErr.Error) {
			return OutcomeDuplicate, cause
		}
		return OutcomeRejected, cause
	}

	if !resp.Success {
		return OutcomeRejected, errors.New("server reported unsuccessful sync")
	}

	return OutcomeAccepted, nil
}

func isDuplicate(code, message string) bool {
	switch code {
	case attendance.CodeDuplicate, attendance.CodeLocked:
		return true
	case "":
	default:
		return false
	}

	msg := strings.ToLower(message)
	for _, marker := range duplicateMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
