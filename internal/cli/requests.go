package cli

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type credentialsRequest struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=128"`
}

type dateRequest struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type reserveRequest struct {
	Date    string `validate:"required,datetime=2006-01-02"`
	Vaccine string `validate:"required,max=64"`
}

type addDosesRequest struct {
	Vaccine string `validate:"required,max=64"`
	Doses   int    `validate:"gte=0"`
}

type cancelRequest struct {
	AppointmentID int64 `validate:"gt=0"`
}

func checkRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "invalid input", err)
	}
	return nil
}

func parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.CodeInvalidArgument, "invalid date", err)
	}
	return day, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInvalidArgument, "invalid appointment id", err)
	}
	return id, nil
}
