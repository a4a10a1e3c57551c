package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/akshay5995/mcpevals/internal/domain"
)

// JUnit XML shapes, compatible with common CI result collectors.
type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitMessage `xml:"failure,omitempty"`
	Error   *junitMessage `xml:"error,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// JUnitWriter renders suite results as JUnit XML. Scored cases below
// threshold become failures; cases that never produced a score become
// errors, matching CI conventions for assertion versus infrastructure
// problems.
type JUnitWriter struct{}

// Write renders the suite to w.
func (JUnitWriter) Write(w io.Writer, suite domain.SuiteResult) error {
	out := junitTestSuite{
		Name:     "mcpevals",
		Tests:    suite.Total,
		Failures: suite.Failed,
		Errors:   suite.Errored,
		Time:     fmt.Sprintf("%.3f", suite.Duration.Seconds()),
	}

	for _, cr := range suite.Cases {
		tc := junitTestCase{
			Name: cr.CaseName,
			Time: fmt.Sprintf("%.3f", cr.Duration.Seconds()),
		}
		switch cr.Status {
		case domain.StatusFailed:
			msg := fmt.Sprintf("score %.2f below threshold", cr.Score.Average)
			tc.Failure = &junitMessage{Message: msg, Body: cr.Score.Comment}
		case domain.StatusError:
			tc.Error = &junitMessage{
				Message: "case execution failed",
				Body:    strings.Join(cr.Errors, "\n"),
			}
		}
		out.Cases = append(out.Cases, tc)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
