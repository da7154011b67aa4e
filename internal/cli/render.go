package cli

import "vaccine-scheduler/internal/apperr"

// One fixed message per taxonomy code. Commands print more specific text for
// the cases they own (duplicate username, failed password rules); everything
// else lands here.
var messages = map[apperr.Code]string{
	apperr.CodeInvalidArgument:      "Please try again!",
	apperr.CodeNotFound:             "Please try again!",
	apperr.CodeAlreadyExists:        "Already exists, try again!",
	apperr.CodeInsufficientDoses:    "Not enough available doses!",
	apperr.CodeNoCaregiverAvailable: "No caregiver is available!",
	apperr.CodeUnauthenticated:      "Please login first!",
	apperr.CodePermissionDenied:     "Permission denied!",
	apperr.CodeConflict:             "Please try again!",
	apperr.CodeStorage:              "Please try again!",
}

func message(err error) string {
	if msg, ok := messages[apperr.CodeOf(err)]; ok {
		return msg
	}
	return "Please try again!"
}
