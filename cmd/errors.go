package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// PrintError prints an error message without exiting. With --verbose the
// technical error is printed instead of userMsg.
func PrintError(userMsg string, technicalErr error) {
	if viper.GetBool("verbose") && technicalErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", technicalErr)
	} else {
		fmt.Fprintln(os.Stderr, userMsg)
	}
}

// LogError logs an error to stderr only in verbose mode.
func LogError(msg string, err error) {
	if viper.GetBool("verbose") {
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DEBUG] %s: %v\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)
		}
	}
}

// userFacing keeps the message of expected workflow errors and hides the
// details of anything else behind fallback.
func userFacing(fallback string, err error) error {
	var (
		ve *workflow.ValidationError
		be *workflow.BusinessError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &be), workflow.IsNotFound(err):
		return err
	}
	if viper.GetBool("verbose") {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	return errors.New(fallback)
}
