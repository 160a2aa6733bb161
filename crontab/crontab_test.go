package crontab

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseCrontabTestCases = []struct {
	crontab  string
	expected []*Job
}{
	// Success cases
	{
		"",
		[]*Job{},
	},

	{
		"\n",
		[]*Job{},
	},

	{
		"* * * * * /bin/true",
		[]*Job{
			{
				CrontabLine: CrontabLine{
					Schedule:    "* * * * *",
					Command:     []string{"/bin/true"},
					CommandLine: "/bin/true",
				},
			},
		},
	},

	{
		"*/5 0-12 1,15 */3 1-5 /usr/bin/backup --full /srv",
		[]*Job{
			{
				CrontabLine: CrontabLine{
					Schedule:    "*/5 0-12 1,15 */3 1-5",
					Command:     []string{"/usr/bin/backup", "--full", "/srv"},
					CommandLine: "/usr/bin/backup --full /srv",
				},
			},
		},
	},

	{
		"* * * * * echo \"a b\" c",
		[]*Job{
			{
				CrontabLine: CrontabLine{
					Schedule:    "* * * * *",
					Command:     []string{"echo", "a b", "c"},
					CommandLine: "echo \"a b\" c",
				},
			},
		},
	},

	{
		"# a comment\n\n  # another\n\t\n  \t  */2 * * * * will run\n1 1 1 1 1 second job",
		[]*Job{
			{
				CrontabLine: CrontabLine{
					Schedule:    "*/2 * * * *",
					Command:     []string{"will", "run"},
					CommandLine: "will run",
				},
			},
			{
				CrontabLine: CrontabLine{
					Schedule:    "1 1 1 1 1",
					Command:     []string{"second", "job"},
					CommandLine: "second job",
				},
			},
		},
	},

	{
		"* * * * *        \twith plenty of whitespace",
		[]*Job{
			{
				CrontabLine: CrontabLine{
					Schedule:    "* * * * *",
					Command:     []string{"with", "plenty", "of", "whitespace"},
					CommandLine: "with plenty of whitespace",
				},
			},
		},
	},

	// Failure cases
	{"* * * * *\n", nil},
	{"* foo * * * cmd\n", nil},
	{"61 * * * * cmd\n", nil},
	{"* * * * * echo \"unclosed\n", nil},
	{"FOO=bar\n", nil},
}

func TestParseCrontab(t *testing.T) {
	for _, tt := range parseCrontabTestCases {
		label := fmt.Sprintf("ParseCrontab(%q)", tt.crontab)

		reader := bytes.NewBufferString(tt.crontab)

		tab, err := ParseCrontab(reader)

		if tt.expected == nil {
			assert.Nil(t, tab, label)
			assert.NotNil(t, err, label)
		} else {
			if !assert.NotNil(t, tab, label) {
				continue
			}
			if !assert.Equal(t, len(tt.expected), len(tab.Jobs), label) {
				continue
			}
			for i, job := range tab.Jobs {
				expected := tt.expected[i]
				assert.Equal(t, expected.Schedule, job.Schedule, label)
				assert.Equal(t, expected.Command, job.Command, label)
				assert.Equal(t, expected.CommandLine, job.CommandLine, label)
				assert.Equal(t, i, job.Position, label)
				assert.NotNil(t, job.Expression, label)
				assert.False(t, job.NextRun.IsZero(), label)
			}
		}
	}
}

func TestParseCrontabReportsLineNumber(t *testing.T) {
	_, err := ParseCrontab(bytes.NewBufferString("# fine\n* * * * * ok\n61 * * * * broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestNewJobErrorKinds(t *testing.T) {
	_, err := NewJob("61 * * * * cmd", 0)
	assert.ErrorIs(t, err, ErrInvalidExpression)

	_, err = NewJob("* * * * * echo \"unclosed", 0)
	assert.ErrorIs(t, err, ErrBadCommand)

	_, err = NewJob("* * * *", 0)
	assert.ErrorIs(t, err, ErrInvalidExpression)

	// Never-matching dates fail at construction, not in the loop.
	_, err = NewJob("0 0 30 2 * cmd", 0)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestNewJobInitializesNextRun(t *testing.T) {
	before := time.Now().UTC()

	job, err := NewJob("* * * * * /bin/true", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, job.Position)
	assert.False(t, job.NextRun.Before(before.Truncate(time.Minute)))
	assert.True(t, job.NextRun.Sub(before) <= time.Minute)
}

func TestReschedule(t *testing.T) {
	job, err := NewJob("*/5 * * * * /bin/true", 0)
	require.NoError(t, err)

	now := time.Date(2025, time.June, 1, 12, 2, 0, 0, time.UTC)
	require.NoError(t, job.Reschedule(now))
	assert.Equal(t, time.Date(2025, time.June, 1, 12, 5, 0, 0, time.UTC), job.NextRun)
}
