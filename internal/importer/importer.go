package importer

import (
	"log/slog"
	"strings"

	"mdstudio/internal/model"
	"mdstudio/internal/names"
)

type Status string

const (
	StatusLoaded           Status = "loaded"
	StatusConverted        Status = "converted"
	StatusConversionFailed Status = "conversionFailed"
)

// Request is one piece of incoming content (opened file, drop, paste).
type Request struct {
	Content string
	Name    string
	// Kind forces a classification; empty means Classify.
	Kind model.ContentKind
}

// Result is the placement decision for a Request. The caller applies it.
type Result struct {
	Content string
	Name    string
	Kind    model.ContentKind
	Status  Status
	// Reuse means overwrite TargetID in place instead of creating a record.
	Reuse    bool
	TargetID string
	// Err is the conversion failure behind StatusConversionFailed.
	Err error
}

type Importer struct {
	Converter Converter
	Logger    *slog.Logger
}

func New(conv Converter, logger *slog.Logger) *Importer {
	if conv == nil {
		conv = NewConverter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{Converter: conv, Logger: logger}
}

// Reusable reports whether doc may be overwritten by an import: nothing typed yet and
// still carrying an auto-generated name.
func Reusable(doc model.Document) bool {
	return doc.ID != "" && doc.Empty() && names.IsUntitled(doc.Name)
}

// Plan classifies and converts req, then works out the final name and whether the
// current document is reused. current may be the zero Document.
func (im *Importer) Plan(current model.Document, set names.Set, req Request) Result {
	kind := req.Kind
	if kind == "" {
		kind = Classify(req.Name, req.Content)
	}
	res := Result{Content: req.Content, Kind: kind, Status: StatusLoaded}

	if kind == model.KindRichHTML {
		out, err := im.Converter.ToMarkdown(req.Content)
		if err != nil {
			im.Logger.Warn("import: conversion failed; falling back to plain text", "name", req.Name, "err", err)
			res.Content = StripToText(req.Content)
			res.Status = StatusConversionFailed
			res.Err = err
		} else {
			res.Content = out
			res.Status = StatusConverted
		}
	}

	res.Reuse = Reusable(current)
	exclude := ""
	if res.Reuse {
		res.TargetID = current.ID
		exclude = current.ID
		// The reused record's own name does not block anything.
		set = cloneWithout(set, current.Name)
	}

	ext := ExtFor(kind)
	name := names.Sanitize(req.Name, "")
	switch {
	case name == "":
		name = names.UntitledName(set, ext)
	case kind == model.KindRichHTML:
		name = names.ReplaceExt(name, ".md")
	default:
		name = names.EnsureExt(name, ext)
	}
	res.Name = names.ResolveConflict(set, name, exclude)
	return res
}

func cloneWithout(set names.Set, name string) names.Set {
	out := make(names.Set, len(set))
	for k, v := range set {
		out[k] = v
	}
	out.Remove(name)
	return out
}

// Message is the status line for an applied Result.
func (r Result) Message() string {
	switch r.Status {
	case StatusConverted:
		return "Converted " + r.Name + " to Markdown"
	case StatusConversionFailed:
		return "Could not convert " + r.Name + "; imported as plain text, please review"
	default:
		return "Opened " + strings.TrimSpace(r.Name)
	}
}
