package treediff

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

const (
	defaultContextLines = 3
	defaultMaxDiffLines = 200
	checksumPrefixLen   = 12
	binarySniffLen      = 8000
)

// FileDiffKind describes how a pair of differing entries differs
type FileDiffKind string

const (
	FileDiffContent FileDiffKind = "content"
	FileDiffBinary  FileDiffKind = "binary"
	FileDiffType    FileDiffKind = "type"
)

// FileDiff details one entry of the diff_files bucket
type FileDiff struct {
	Path            string       `json:"path" yaml:"path"`
	Kind            FileDiffKind `json:"kind" yaml:"kind"`
	LeftType        EntryType    `json:"-" yaml:"-"`
	RightType       EntryType    `json:"-" yaml:"-"`
	FirstDifference int          `json:"first_difference,omitempty" yaml:"first_difference,omitempty"`
	Unified         string       `json:"unified,omitempty" yaml:"unified,omitempty"`
	LeftSize        int64        `json:"left_size,omitempty" yaml:"left_size,omitempty"`
	RightSize       int64        `json:"right_size,omitempty" yaml:"right_size,omitempty"`
	LeftChecksum    string       `json:"left_checksum,omitempty" yaml:"left_checksum,omitempty"`
	RightChecksum   string       `json:"right_checksum,omitempty" yaml:"right_checksum,omitempty"`
}

// DirectoryReport groups the differing files of one directory, with one
// labeled child per subdirectory that contains differences.
type DirectoryReport struct {
	Path     string             `json:"path" yaml:"path"`
	Files    []FileDiff         `json:"files,omitempty" yaml:"files,omitempty"`
	Children []*DirectoryReport `json:"children,omitempty" yaml:"children,omitempty"`
}

// Report is a structured failure description for a non-empty Result
type Report struct {
	Left        string          `json:"left"`
	Right       string          `json:"right"`
	LeftLabel   string          `json:"left_label"`
	RightLabel  string          `json:"right_label"`
	Buckets     []Bucket        `json:"buckets"`
	Result      *Result         `json:"result"`
	Files       DirectoryReport `json:"files"`
	Description string          `json:"description,omitempty"`
	Context     map[string]any  `json:"context,omitempty"`

	color bool
}

// ReportOption represents optional parameters for NewReporter
type ReportOption func(*Reporter)

// Reporter turns a Result into a Report
type Reporter struct {
	leftLabel    string
	rightLabel   string
	matcher      *FuzzyMatcher
	contextLines int
	maxDiffLines int
	hashType     HashType
	color        bool
}

// WithLabels names the two sides in rendered output. Defaults to
// "Left" and "Right".
func WithLabels(left, right string) ReportOption {
	return func(r *Reporter) {
		r.leftLabel = left
		r.rightLabel = right
	}
}

// WithTextMatcher sets the matcher used to decode text files
func WithTextMatcher(matcher *FuzzyMatcher) ReportOption {
	return func(r *Reporter) {
		if matcher != nil {
			r.matcher = matcher
		}
	}
}

// WithContextLines sets the number of unified diff context lines
func WithContextLines(lines int) ReportOption {
	return func(r *Reporter) {
		r.contextLines = lines
	}
}

// WithMaxDiffLines caps the lines kept per unified diff (0 = unlimited)
func WithMaxDiffLines(lines int) ReportOption {
	return func(r *Reporter) {
		r.maxDiffLines = lines
	}
}

// WithHash sets the checksum algorithm shown for binary files
func WithHash(hashType HashType) ReportOption {
	return func(r *Reporter) {
		r.hashType = hashType
	}
}

// WithColor enables ANSI colors in rendered reports
func WithColor(enabled bool) ReportOption {
	return func(r *Reporter) {
		r.color = enabled
	}
}

func NewReporter(options ...ReportOption) *Reporter {
	matcher, _ := NewFuzzyMatcher()
	r := &Reporter{
		leftLabel:    "Left",
		rightLabel:   "Right",
		matcher:      matcher,
		contextLines: defaultContextLines,
		maxDiffLines: defaultMaxDiffLines,
		hashType:     HashSHA256,
	}
	for _, opt := range options {
		opt(r)
	}

	return r
}

// Build inspects every diff_files entry of result under the left and right
// roots and returns the report. Buckets lists only non-empty buckets.
func (r *Reporter) Build(left, right string, result *Result) (*Report, error) {
	report := &Report{
		Left:       left,
		Right:      right,
		LeftLabel:  r.leftLabel,
		RightLabel: r.rightLabel,
		Buckets:    result.NonEmptyBuckets(),
		Result:     result,
		color:      r.color,
	}

	var files []FileDiff
	for _, relPath := range result.DiffFiles {
		fileDiff, err := r.diffFile(left, right, relPath)
		if err != nil {
			return nil, ErrBuildReport.
				SetError(err).
				SetData(pathErrorContext{
					Path:  relPath,
					Error: err,
				})
		}
		files = append(files, fileDiff)
	}

	report.Files = groupFiles("", files)
	return report, nil
}

func (r *Reporter) diffFile(left, right, relPath string) (FileDiff, error) {
	leftPath := filepath.Join(left, filepath.FromSlash(relPath))
	rightPath := filepath.Join(right, filepath.FromSlash(relPath))

	leftType, _ := statType(leftPath)
	rightType, _ := statType(rightPath)

	fileDiff := FileDiff{
		Path:      relPath,
		LeftType:  leftType,
		RightType: rightType,
	}

	if leftType != TypeFile || rightType != TypeFile {
		fileDiff.Kind = FileDiffType
		return fileDiff, nil
	}

	leftData, err := ReadFile(leftPath)
	if err != nil {
		return fileDiff, err
	}

	rightData, err := ReadFile(rightPath)
	if err != nil {
		return fileDiff, err
	}

	leftText, leftOK := r.text(leftPath, leftData)
	rightText, rightOK := r.text(rightPath, rightData)
	if !leftOK || !rightOK {
		return r.binaryDiff(fileDiff, leftPath, rightPath, leftData, rightData)
	}

	leftLines := difflib.SplitLines(leftText)
	rightLines := difflib.SplitLines(rightText)

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        leftLines,
		B:        rightLines,
		FromFile: path.Join(r.leftLabel, relPath),
		ToFile:   path.Join(r.rightLabel, relPath),
		Context:  r.contextLines,
	})
	if err != nil {
		return fileDiff, err
	}

	fileDiff.Kind = FileDiffContent
	fileDiff.FirstDifference = firstDifference(leftLines, rightLines)
	fileDiff.Unified = truncateLines(unified, r.maxDiffLines)
	return fileDiff, nil
}

func (r *Reporter) binaryDiff(fileDiff FileDiff, leftPath, rightPath string, leftData, rightData []byte) (FileDiff, error) {
	leftSum, err := FileChecksum(leftPath, r.hashType)
	if err != nil {
		return fileDiff, err
	}

	rightSum, err := FileChecksum(rightPath, r.hashType)
	if err != nil {
		return fileDiff, err
	}

	fileDiff.Kind = FileDiffBinary
	fileDiff.LeftSize = int64(len(leftData))
	fileDiff.RightSize = int64(len(rightData))
	fileDiff.LeftChecksum = leftSum[:checksumPrefixLen]
	fileDiff.RightChecksum = rightSum[:checksumPrefixLen]
	return fileDiff, nil
}

// text decodes data for display. Content with NUL bytes near the start or
// that fails to decode is treated as binary.
func (r *Reporter) text(path string, data []byte) (string, bool) {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", false
	}

	text, err := r.matcher.Decode(path, data)
	if err != nil {
		return "", false
	}

	return text, true
}

// firstDifference returns the 1-based number of the first line that differs
func firstDifference(left, right []string) int {
	for i := 0; i < len(left) && i < len(right); i++ {
		if left[i] != right[i] {
			return i + 1
		}
	}

	if len(left) < len(right) {
		return len(left) + 1
	}
	return len(right) + 1
}

func truncateLines(s string, max int) string {
	if max <= 0 {
		return s
	}

	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= max {
		return s
	}

	return strings.Join(lines[:max], "") + fmt.Sprintf("... (%d more lines)\n", len(lines)-max)
}

// groupFiles builds the directory tree of file diffs below dir. Paths in
// files are relative to dir.
func groupFiles(dir string, files []FileDiff) DirectoryReport {
	report := DirectoryReport{Path: dir}
	nested := make(map[string][]FileDiff)

	for _, fileDiff := range files {
		head, rest, found := strings.Cut(fileDiff.Path, "/")
		if !found {
			fileDiff.Path = path.Join(dir, fileDiff.Path)
			report.Files = append(report.Files, fileDiff)
			continue
		}

		fileDiff.Path = rest
		nested[head] = append(nested[head], fileDiff)
	}

	names := make([]string, 0, len(nested))
	for name := range nested {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		child := groupFiles(path.Join(dir, name), nested[name])
		report.Children = append(report.Children, &child)
	}

	return report
}

// String renders the report as plain text. A render failure is appended to
// the partial output.
func (report *Report) String() string {
	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		fmt.Fprintf(&buf, "\n<report render failed: %v>\n", err)
	}
	return buf.String()
}

// Render writes the human readable report to w
func (report *Report) Render(w io.Writer) error {
	header := color.New(color.Bold)
	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	for _, c := range []*color.Color{header, removed, added} {
		if report.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var buf bytes.Buffer
	header.Fprintln(&buf, "Directory contents differ:")
	fmt.Fprintf(&buf, "\n  %s | %s :\n", report.LeftLabel, report.RightLabel)
	fmt.Fprintf(&buf, "    %s\n    %s\n\n", report.Left, report.Right)

	buckets := make([]string, 0, len(report.Buckets))
	for _, bucket := range report.Buckets {
		buckets = append(buckets, string(bucket))
	}
	fmt.Fprintf(&buf, "  Non-empty: %s\n", strings.Join(buckets, ", "))
	for _, bucket := range []Bucket{BucketLeftOnly, BucketRightOnly, BucketDiffFiles} {
		fmt.Fprintf(&buf, "  %-10s = [%s]\n", bucket, strings.Join(report.Result.Paths(bucket), " "))
	}

	if len(report.Result.DiffFiles) > 0 {
		fmt.Fprintln(&buf)
		header.Fprintln(&buf, "  Differing files:")
		report.renderDirectory(&buf, &report.Files, "    ", removed, added)
	}

	if report.Description != "" {
		fmt.Fprintf(&buf, "\n  Description: %s\n", report.Description)
	}

	if len(report.Context) > 0 {
		data, err := yaml.Marshal(report.Context)
		if err != nil {
			return err
		}
		fmt.Fprintln(&buf, "\n  Context:")
		buf.WriteString(indent(string(data), "    "))
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (report *Report) renderDirectory(buf *bytes.Buffer, dir *DirectoryReport, prefix string, removed, added *color.Color) {
	for _, fileDiff := range dir.Files {
		name := path.Base(fileDiff.Path)

		switch fileDiff.Kind {
		case FileDiffType:
			fmt.Fprintf(buf, "%s%s: type mismatch (%s | %s)\n", prefix, name, fileDiff.LeftType, fileDiff.RightType)
		case FileDiffBinary:
			fmt.Fprintf(buf, "%s%s: binary files differ\n", prefix, name)
			fmt.Fprintf(buf, "%s  %s: %s %s\n", prefix, report.LeftLabel, humanize.Bytes(uint64(fileDiff.LeftSize)), fileDiff.LeftChecksum)
			fmt.Fprintf(buf, "%s  %s: %s %s\n", prefix, report.RightLabel, humanize.Bytes(uint64(fileDiff.RightSize)), fileDiff.RightChecksum)
		case FileDiffContent:
			fmt.Fprintf(buf, "%s%s: first difference at line %d\n", prefix, name, fileDiff.FirstDifference)
			for _, line := range strings.SplitAfter(fileDiff.Unified, "\n") {
				if line == "" {
					continue
				}
				line = strings.TrimSuffix(line, "\n")
				switch {
				case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
					removed.Fprintf(buf, "%s  %s\n", prefix, line)
				case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
					added.Fprintf(buf, "%s  %s\n", prefix, line)
				default:
					fmt.Fprintf(buf, "%s  %s\n", prefix, line)
				}
			}
		}
	}

	for _, child := range dir.Children {
		fmt.Fprintf(buf, "%sDirectory %s/:\n", prefix, child.Path)
		report.renderDirectory(buf, child, prefix+"  ", removed, added)
	}
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		if line != "\n" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}

	return b.String()
}
