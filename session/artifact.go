package session

import "github.com/DachengChen/dbchat/render"

// ResultKind says what the current result artifact holds.
type ResultKind int

const (
	ResultNone  ResultKind = iota // nothing produced yet
	ResultTable                   // a non-empty grid
	ResultEmpty                   // the "no results found" marker
	ResultError                   // a failed execution
)

// ResultArtifact is the result panel shown next to the transcript.
type ResultArtifact struct {
	Kind   ResultKind
	Markup render.Markup
	Err    string
}

// String returns the display text of the artifact.
func (a ResultArtifact) String() string {
	switch a.Kind {
	case ResultTable, ResultEmpty:
		return a.Markup.String()
	case ResultError:
		return a.Err
	}
	return ""
}

func tableArtifact(rs *ResultSet) ResultArtifact {
	if rs == nil {
		return ResultArtifact{Kind: ResultEmpty}
	}
	m := render.Table(rs.Columns, rs.Rows)
	if m.Empty() {
		return ResultArtifact{Kind: ResultEmpty, Markup: m}
	}
	return ResultArtifact{Kind: ResultTable, Markup: m}
}

func errorArtifact(err error) ResultArtifact {
	return ResultArtifact{Kind: ResultError, Err: "Error: " + ErrorMessage(err)}
}
