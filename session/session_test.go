package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/dbchat/render"
)

// fakeBackend answers from canned values and records every call.
type fakeBackend struct {
	mu sync.Mutex

	connectAck string
	connectErr error

	tables    []string
	tablesErr error

	replies []fakeReply

	execResult *ResultSet
	execErr    error

	chatMessages []string
	execQueries  []string
	calls        int
}

type fakeReply struct {
	reply *ChatReply
	err   error
}

func (f *fakeBackend) Connect(_ context.Context, _ EngineKind, _ Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.connectAck, f.connectErr
}

func (f *fakeBackend) ListTables(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tables, f.tablesErr
}

func (f *fakeBackend) Chat(_ context.Context, message, _ string) (*ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.chatMessages = append(f.chatMessages, message)
	if len(f.replies) == 0 {
		return &ChatReply{}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.reply, r.err
}

func (f *fakeBackend) ExecuteQuery(_ context.Context, query, _ string) (*ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.execQueries = append(f.execQueries, query)
	return f.execResult, f.execErr
}

// payloadErr mimics a backend error that carries its own message.
type payloadErr struct{ msg string }

func (e *payloadErr) Error() string       { return "backend error: " + e.msg }
func (e *payloadErr) UserMessage() string { return e.msg }

func newTestSession(b Backend) *Session {
	return New(b, SessionRef{DB: "PostgreSQL", Engine: PostgreSQL}, zerolog.Nop())
}

// run executes cmd synchronously, the way the Bubble Tea runtime would.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func sendAndApply(t *testing.T, s *Session, utterance string) {
	t.Helper()
	cmd, err := s.Send(utterance)
	require.NoError(t, err)
	require.True(t, s.Apply(run(t, cmd)))
}

func TestSend_SequentialTurnsKeepOrder(t *testing.T) {
	b := &fakeBackend{replies: []fakeReply{
		{reply: &ChatReply{Message: "first answer"}},
		{reply: &ChatReply{Query: "SELECT 1;"}},
		{reply: &ChatReply{Message: "third answer"}},
	}}
	s := newTestSession(b)

	sendAndApply(t, s, "one")
	sendAndApply(t, s, "two")
	sendAndApply(t, s, "three")

	assert.Equal(t, []ChatTurn{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "two"},
		{Role: RoleUser, Content: "three"},
		{Role: RoleAssistant, Content: "third answer"},
	}, s.Transcript())
	assert.Equal(t, []string{"one", "two", "three"}, b.chatMessages)
}

func TestSend_RejectsBlankInput(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)

	for _, in := range []string{"", "   ", "\n\t "} {
		cmd, err := s.Send(in)
		assert.ErrorIs(t, err, ErrEmptyUtterance)
		assert.Nil(t, cmd)
	}

	assert.Empty(t, s.Transcript())
	assert.Zero(t, b.calls)
	assert.False(t, s.Busy(OpChat))
}

func TestSend_UserTurnVisibleBeforeReply(t *testing.T) {
	s := newTestSession(&fakeBackend{})

	cmd, err := s.Send("how many students?")
	require.NoError(t, err)
	require.NotNil(t, cmd)

	assert.Equal(t, []ChatTurn{{Role: RoleUser, Content: "how many students?"}}, s.Transcript())
	assert.True(t, s.Busy(OpChat))
}

func TestSend_BusyGateRejectsOverlap(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)

	first, err := s.Send("first")
	require.NoError(t, err)

	second, err := s.Send("second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, second)
	assert.Len(t, s.Transcript(), 1)

	s.Apply(run(t, first))
	assert.False(t, s.Busy(OpChat))

	_, err = s.Send("second")
	assert.NoError(t, err)
}

func TestSend_QueryOnlyReplyLeavesTranscriptAlone(t *testing.T) {
	s := newTestSession(&fakeBackend{replies: []fakeReply{
		{reply: &ChatReply{Query: "SELECT name FROM students;"}},
	}})

	sendAndApply(t, s, "list students")

	q, ok := s.Query()
	assert.True(t, ok)
	assert.Equal(t, "SELECT name FROM students;", q)
	assert.Equal(t, []ChatTurn{{Role: RoleUser, Content: "list students"}}, s.Transcript())
	assert.Equal(t, ResultNone, s.Result().Kind)
}

func TestSend_ReplyWithResultsUpdatesArtifact(t *testing.T) {
	s := newTestSession(&fakeBackend{replies: []fakeReply{
		{reply: &ChatReply{
			Message: "Here you go",
			Query:   "SELECT a, b FROM t;",
			Results: &ResultSet{Columns: []string{"a", "b"}, Rows: [][]any{{1, 2}}},
		}},
	}})

	sendAndApply(t, s, "show t")

	res := s.Result()
	assert.Equal(t, ResultTable, res.Kind)
	assert.Equal(t, []string{"a", "b"}, res.Markup.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, res.Markup.Rows)
}

func TestSend_LaterQueryOverwritesEarlier(t *testing.T) {
	s := newTestSession(&fakeBackend{replies: []fakeReply{
		{reply: &ChatReply{Query: "SELECT 1;"}},
		{reply: &ChatReply{Message: "no query this time"}},
		{reply: &ChatReply{Query: "SELECT 2;"}},
	}})

	sendAndApply(t, s, "a")
	sendAndApply(t, s, "b")
	q, _ := s.Query()
	assert.Equal(t, "SELECT 1;", q, "a turn without a query keeps the previous one")

	sendAndApply(t, s, "c")
	q, _ = s.Query()
	assert.Equal(t, "SELECT 2;", q)
}

func TestSend_FailureAppendsErrorTurn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "backend payload", err: &payloadErr{msg: "No connection found"}, want: "Error: No connection found"},
		{name: "transport", err: errors.New("connection refused"), want: "Error: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(&fakeBackend{replies: []fakeReply{{err: tt.err}}})

			sendAndApply(t, s, "hello")

			turns := s.Transcript()
			require.Len(t, turns, 2)
			assert.Equal(t, ChatTurn{Role: RoleAssistant, Content: tt.want}, turns[1])
			assert.False(t, s.Busy(OpChat), "busy flag must clear after a failure")
		})
	}
}

func TestSelectTable_SendsFixedPrompt(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, SessionRef{DB: "MySQL", Engine: MySQL}, zerolog.Nop())

	cmd, err := s.SelectTable("students")
	require.NoError(t, err)
	s.Apply(run(t, cmd))

	want := "Show information about students table in MySQL database."
	assert.Equal(t, []string{want}, b.chatMessages)
	assert.Equal(t, ChatTurn{Role: RoleUser, Content: want}, s.Transcript()[0])
}

func TestStart_FetchesTablesOnce(t *testing.T) {
	b := &fakeBackend{tables: []string{"students", "courses"}}
	s := newTestSession(b)

	cmd := s.Start()
	assert.True(t, s.Busy(OpTables))
	s.Apply(run(t, cmd))

	assert.Nil(t, s.Start())
	assert.Equal(t, []string{"students", "courses"}, s.Tables())
	assert.Equal(t, 1, b.calls)
	assert.False(t, s.Busy(OpTables))
}

func TestStart_SkipsWithoutDatabase(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, SessionRef{}, zerolog.Nop())

	assert.Nil(t, s.Start())
	assert.Nil(t, s.RefreshTables())
	assert.Zero(t, b.calls)
	assert.Empty(t, s.Transcript())
}

func TestStart_FailureIsVisibleInTranscript(t *testing.T) {
	s := newTestSession(&fakeBackend{tablesErr: &payloadErr{msg: "No connection found for the given database type"}})

	s.Apply(run(t, s.Start()))

	assert.Equal(t, []ChatTurn{{
		Role:    RoleAssistant,
		Content: "Error fetching tables: No connection found for the given database type",
	}}, s.Transcript())
	assert.Empty(t, s.Tables())

	// Chat still works after a failed fetch.
	_, err := s.Send("hello")
	assert.NoError(t, err)
}

func TestRefreshTables_NoOverlap(t *testing.T) {
	b := &fakeBackend{tables: []string{"a"}}
	s := newTestSession(b)

	cmd := s.Start()
	assert.Nil(t, s.RefreshTables())

	s.Apply(run(t, cmd))
	b.tables = []string{"a", "b"}
	s.Apply(run(t, s.RefreshTables()))

	assert.Equal(t, []string{"a", "b"}, s.Tables())
}

func TestExecute_RequiresQuery(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)

	assert.False(t, s.CanExecute())
	cmd, err := s.Execute()
	assert.ErrorIs(t, err, ErrNoQuery)
	assert.Nil(t, cmd)
	assert.Zero(t, b.calls)
}

func TestExecute_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		result   *ResultSet
		err      error
		wantKind ResultKind
		wantText string
	}{
		{
			name:     "rows",
			result:   &ResultSet{Columns: []string{"n"}, Rows: [][]any{{42}}},
			wantKind: ResultTable,
		},
		{
			name:     "columns without rows",
			result:   &ResultSet{Columns: []string{"a", "b"}, Rows: [][]any{}},
			wantKind: ResultEmpty,
			wantText: render.NoResults,
		},
		{
			name:     "nil result",
			wantKind: ResultEmpty,
			wantText: render.NoResults,
		},
		{
			name:     "backend error",
			err:      &payloadErr{msg: "syntax error at or near \"SELEC\""},
			wantKind: ResultError,
			wantText: "Error: syntax error at or near \"SELEC\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{
				replies:    []fakeReply{{reply: &ChatReply{Query: "SELECT n FROM t;"}}},
				execResult: tt.result,
				execErr:    tt.err,
			}
			s := newTestSession(b)
			sendAndApply(t, s, "count")
			require.True(t, s.CanExecute())

			cmd, err := s.Execute()
			require.NoError(t, err)
			assert.True(t, s.Busy(OpExecute))
			assert.False(t, s.CanExecute())
			s.Apply(run(t, cmd))

			assert.Equal(t, []string{"SELECT n FROM t;"}, b.execQueries)
			assert.False(t, s.Busy(OpExecute))
			assert.Equal(t, tt.wantKind, s.Result().Kind)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, s.Result().String())
			}
		})
	}
}

func TestExecute_DoesNotBlockChat(t *testing.T) {
	s := newTestSession(&fakeBackend{replies: []fakeReply{{reply: &ChatReply{Query: "SELECT 1;"}}}})
	sendAndApply(t, s, "q")

	_, err := s.Execute()
	require.NoError(t, err)

	_, err = s.Send("another question")
	assert.NoError(t, err)
}

func TestResultTickets_LateChatResultDoesNotClobberExecution(t *testing.T) {
	b := &fakeBackend{
		replies: []fakeReply{
			{reply: &ChatReply{Query: "SELECT 1;"}},
			{reply: &ChatReply{Results: &ResultSet{Columns: []string{"from"}, Rows: [][]any{{"chat"}}}}},
		},
		execResult: &ResultSet{Columns: []string{"from"}, Rows: [][]any{{"execute"}}},
	}
	s := newTestSession(b)
	sendAndApply(t, s, "q")

	chatCmd, err := s.Send("slow turn")
	require.NoError(t, err)
	execCmd, err := s.Execute()
	require.NoError(t, err)

	chatMsg := run(t, chatCmd)
	s.Apply(run(t, execCmd))
	s.Apply(chatMsg)

	assert.Equal(t, [][]string{{"execute"}}, s.Result().Markup.Rows)
	assert.False(t, s.Busy(OpChat))
	assert.False(t, s.Busy(OpExecute))
}

func TestResultTickets_LateExecutionDoesNotClobberNewerChat(t *testing.T) {
	b := &fakeBackend{
		replies: []fakeReply{
			{reply: &ChatReply{Query: "SELECT 1;"}},
			{reply: &ChatReply{Results: &ResultSet{Columns: []string{"from"}, Rows: [][]any{{"chat"}}}}},
		},
		execErr: errors.New("timeout"),
	}
	s := newTestSession(b)
	sendAndApply(t, s, "q")

	execCmd, err := s.Execute()
	require.NoError(t, err)
	chatCmd, err := s.Send("newer turn")
	require.NoError(t, err)

	execMsg := run(t, execCmd)
	s.Apply(run(t, chatCmd))
	s.Apply(execMsg)

	assert.Equal(t, ResultTable, s.Result().Kind)
	assert.Equal(t, [][]string{{"chat"}}, s.Result().Markup.Rows)
}

func TestApply_IgnoresOtherSessions(t *testing.T) {
	b := &fakeBackend{replies: []fakeReply{{reply: &ChatReply{Message: "hi"}}}}
	old := newTestSession(b)
	cmd, err := old.Send("hello")
	require.NoError(t, err)
	msg := run(t, cmd)

	current := newTestSession(b)
	assert.False(t, current.Apply(msg))
	assert.False(t, current.Apply("unrelated"))
	assert.Empty(t, current.Transcript())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "plain", ErrorMessage(errors.New("plain")))
	assert.Equal(t, "payload", ErrorMessage(&payloadErr{msg: "payload"}))

	wrapped := errors.Join(errors.New("ctx"), &payloadErr{msg: "inner"})
	assert.Equal(t, "inner", ErrorMessage(wrapped))
}

func TestTranscript_AllReturnsCopy(t *testing.T) {
	var tr Transcript
	tr.Append(ChatTurn{Role: RoleUser, Content: "a"})

	snap := tr.All()
	snap[0].Content = "mutated"
	tr.Append(ChatTurn{Role: RoleAssistant, Content: "b"})

	assert.Equal(t, "a", tr.All()[0].Content)
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_ConcurrentAppends(t *testing.T) {
	var tr Transcript
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(ChatTurn{Role: RoleUser, Content: "x"})
			_ = tr.All()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tr.Len())
}
