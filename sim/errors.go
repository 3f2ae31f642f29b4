package sim

import (
	perrors "github.com/jmgilman/go/errors"
)

// Error codes for the failure kinds the simulator reports. Configuration
// problems reuse the platform's invalid-configuration code.
const (
	CodeConfiguration perrors.ErrorCode = perrors.CodeInvalidConfig
	CodeJournalWrite  perrors.ErrorCode = "JOURNAL_WRITE_FAILED"
	CodePlotRender    perrors.ErrorCode = "PLOT_RENDER_FAILED"
)

// ConfigurationErrorf builds a ConfigurationError. It is always fatal to the run
// and is raised before any simulation work begins.
func ConfigurationErrorf(format string, args ...any) error {
	return perrors.Newf(CodeConfiguration, format, args...)
}

// JournalWriteError wraps a failure to persist a journal block at path.
func JournalWriteError(err error, path string) error {
	if err == nil {
		return nil
	}
	return perrors.WithContext(perrors.Wrap(err, CodeJournalWrite, "journal write failed"), "path", path)
}

// PlotRenderError wraps a failure to render or store the plot at path.
func PlotRenderError(err error, path string) error {
	if err == nil {
		return nil
	}
	return perrors.WithContext(perrors.Wrap(err, CodePlotRender, "plot render failed"), "path", path)
}

// IsConfigurationError reports whether err, or any error it wraps or joins,
// carries the configuration code.
func IsConfigurationError(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsJournalWriteError reports whether err, or any error it wraps or joins,
// carries the journal write code.
func IsJournalWriteError(err error) bool {
	return hasCode(err, CodeJournalWrite)
}

// IsPlotRenderError reports whether err, or any error it wraps or joins,
// carries the plot render code.
func IsPlotRenderError(err error) bool {
	return hasCode(err, CodePlotRender)
}

// hasCode walks the error tree, including errors.Join branches, which
// perrors.GetCode stops at the first coded error of.
func hasCode(err error, code perrors.ErrorCode) bool {
	for err != nil {
		if pe, ok := err.(perrors.PlatformError); ok && pe.Code() == code {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if hasCode(e, code) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}
