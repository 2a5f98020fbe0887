//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package summarize provides an offline extractive summarizer for
// summarize nodes.
//
// The prompt and the dependency outputs are parsed as markdown. The summary
// keeps the section headings and picks sentences round robin over the
// paragraphs, first sentences first, so every paragraph is represented
// before any gets a second sentence.
package summarize

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/function"
)

// Name is the registry name of the tool.
const Name = "summarize"

const defaultMaxSentences = 5

// Option configures the summarize tool.
type Option func(*summarizer)

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(s *summarizer) {
		s.name = name
	}
}

// WithMaxSentences sets the default sentence budget. Nodes override it
// with the "max_sentences" config value.
func WithMaxSentences(n int) Option {
	return func(s *summarizer) {
		if n > 0 {
			s.maxSentences = n
		}
	}
}

// NewTool creates the summarize tool.
func NewTool(opts ...Option) tool.Tool {
	s := &summarizer{
		name:         Name,
		maxSentences: defaultMaxSentences,
		md:           goldmark.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return function.NewFunctionTool(
		s.summarize,
		function.WithName(s.name),
		function.WithDescription("Extracts headings and leading sentences from markdown input."),
		function.WithInputSource(function.FromArgs),
	)
}

type summarizer struct {
	name         string
	maxSentences int
	md           goldmark.Markdown
}

// section is a heading and the paragraphs below it.
type section struct {
	heading    string
	paragraphs [][]string
}

func (s *summarizer) summarize(_ context.Context, args *tool.Args) (string, error) {
	var parts []string
	if p := strings.TrimSpace(args.Prompt); p != "" {
		parts = append(parts, p)
	}
	if in := args.JoinedInputs(); in != "" {
		parts = append(parts, in)
	}
	if len(parts) == 0 {
		return "", errors.New("nothing to summarize")
	}
	budget := args.Int("max_sentences", s.maxSentences)
	if budget <= 0 {
		budget = s.maxSentences
	}
	sections := s.parse([]byte(strings.Join(parts, "\n\n")))
	return render(sections, pick(sections, budget)), nil
}

func (s *summarizer) parse(source []byte) []*section {
	doc := s.md.Parser().Parse(text.NewReader(source))
	current := &section{}
	sections := []*section{current}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Heading:
			current = &section{heading: extractText(n, source)}
			sections = append(sections, current)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			if sentences := splitSentences(extractText(n, source)); len(sentences) > 0 {
				current.paragraphs = append(current.paragraphs, sentences)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return sections
}

// pick marks the chosen sentences as picked[section][paragraph] = count.
func pick(sections []*section, budget int) map[*section][]int {
	picked := make(map[*section][]int, len(sections))
	for _, sec := range sections {
		picked[sec] = make([]int, len(sec.paragraphs))
	}
	for round := 0; budget > 0; round++ {
		progressed := false
		for _, sec := range sections {
			for i, p := range sec.paragraphs {
				if budget == 0 || round >= len(p) {
					continue
				}
				picked[sec][i]++
				budget--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return picked
}

func render(sections []*section, picked map[*section][]int) string {
	var sb strings.Builder
	for _, sec := range sections {
		var lines []string
		for i, p := range sec.paragraphs {
			for _, sentence := range p[:picked[sec][i]] {
				lines = append(lines, "- "+sentence)
			}
		}
		if len(lines) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if sec.heading != "" {
			sb.WriteString("## " + sec.heading + "\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
	return sb.String()
}

func extractText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// splitSentences cuts at '.', '!' or '?' followed by a space or the end.
func splitSentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}
