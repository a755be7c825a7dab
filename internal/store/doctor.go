package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mdstudio/internal/quota"
)

var ErrDoctorIssuesFound = errors.New("doctor: issues found")

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Key     string           `json:"key,omitempty"`
	ID      string           `json:"id,omitempty"`
}

type DoctorReport struct {
	Documents int           `json:"documents"`
	Usage     quota.Usage   `json:"usage"`
	Issues    []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// Doctor inspects the stored state without changing it: what a load would repair or
// drop, a leftover legacy autosave, and how close the data is to the budget.
func Doctor(ctx context.Context, kv KV, budget int) DoctorReport {
	var issues []DoctorIssue

	c := NewCodec(kv, slog.New(slog.DiscardHandler))
	res := c.Load(ctx)
	switch {
	case res.Err != nil:
		issues = append(issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    "read_failed",
			Message: res.Err.Error(),
			Key:     DocumentsKey,
		})
	case res.Warning != "":
		issues = append(issues, DoctorIssue{
			Level:   DoctorIssueLevelError,
			Code:    "envelope_unreadable",
			Message: res.Warning,
			Key:     DocumentsKey,
		})
	}

	for _, r := range res.Records {
		switch r.Status {
		case RecordRejected:
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelError,
				Code:    "record_rejected",
				Message: "record will be dropped on load: " + strings.Join(r.Fixes, ", "),
				Key:     r.Key,
				ID:      r.ID,
			})
		case RecordRecovered:
			issues = append(issues, DoctorIssue{
				Level:   DoctorIssueLevelWarn,
				Code:    "record_recovered",
				Message: "record will be repaired on load: " + strings.Join(r.Fixes, ", "),
				Key:     r.Key,
				ID:      r.ID,
			})
		}
	}

	if raw, ok, err := kv.Get(ctx, LegacyKey); err == nil && ok {
		level, msg := DoctorIssueLevelWarn, "legacy autosave is pending migration"
		if res.Found {
			msg = "legacy autosave is left over next to the documents and will be ignored"
		}
		if _, valid := decodeLegacy(raw); !valid {
			msg = "legacy autosave is malformed and will be discarded"
		}
		issues = append(issues, DoctorIssue{Level: level, Code: "legacy_autosave", Message: msg, Key: LegacyKey})
	}

	size := 0
	if res.Found {
		if b, err := c.Encode(res.Envelope); err == nil {
			size = len(b)
		}
	}
	u := quota.ComputeSize(size, budget)
	if u.Level != quota.LevelNormal {
		issues = append(issues, DoctorIssue{
			Level:   DoctorIssueLevelWarn,
			Code:    "quota_" + string(u.Level),
			Message: fmt.Sprintf("storage is %d%% full", u.Percent),
		})
	}

	if issues == nil {
		issues = []DoctorIssue{}
	}
	return DoctorReport{Documents: len(res.Envelope.Documents), Usage: u, Issues: issues}
}
