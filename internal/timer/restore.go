package timer

import (
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// 快进上限：focus → break → idle 最多两次有效推进
const maxFastForwardSteps = 4

// Restore 从持久化的计时器行恢复状态。
// 行不合法时回到 idle；若计时器在进程挂起期间已到期，以 now 连续推进直到稳定，
// 返回推进过程中产生的会话（分钟数取自存储的 startedAt/endsAt）。
func Restore(row *schema.ActiveTimer, selected string, settings Settings, now time.Time) (State, []*schema.FocusSession) {
	state, ok := FromRow(row, selected)
	if !ok {
		return Idle(selected), nil
	}

	var sessions []*schema.FocusSession
	for i := 0; i < maxFastForwardSteps; i++ {
		if state.Phase != PhaseFocusing && state.Phase != PhaseBreak {
			break
		}
		next, session := Reduce(state, Event{Kind: EventTick, At: now}, settings)
		if session != nil {
			sessions = append(sessions, session)
		}
		if next.Phase == state.Phase {
			state = next
			break
		}
		state = next
	}
	return state, sessions
}

// FromRow 将持久化行转换为状态；ok=false 表示行缺失或不合法
func FromRow(row *schema.ActiveTimer, selected string) (State, bool) {
	if row == nil {
		return State{}, false
	}
	phase := Phase(row.Phase)
	if !phase.Valid() || phase == PhaseIdle {
		return State{}, false
	}
	minutes, ok := schema.PresetMinutes[row.PresetID]
	if !ok || row.SessionID == "" {
		return State{}, false
	}
	if row.StartedAt <= 0 || row.EndsAt <= row.StartedAt {
		return State{}, false
	}
	if !schema.IsValidPreset(selected) {
		selected = row.PresetID
	}
	totalMinutes := row.TotalMinutes
	if totalMinutes <= 0 {
		totalMinutes = minutes
	}
	return State{
		Phase:          phase,
		SelectedPreset: selected,
		SessionID:      row.SessionID,
		PresetID:       row.PresetID,
		StartedAt:      time.UnixMilli(row.StartedAt),
		EndsAt:         time.UnixMilli(row.EndsAt),
		TotalMinutes:   totalMinutes,
		TickInterval:   DefaultTickInterval,
	}, true
}

// ToRow 将状态转换为持久化行；idle 返回 nil（应删除该行）
func ToRow(s State) *schema.ActiveTimer {
	if s.Phase == PhaseIdle || !s.Phase.Valid() {
		return nil
	}
	return &schema.ActiveTimer{
		ID:           schema.ActiveTimerID,
		SessionID:    s.SessionID,
		Phase:        string(s.Phase),
		PresetID:     s.PresetID,
		StartedAt:    s.StartedAt.UnixMilli(),
		EndsAt:       s.EndsAt.UnixMilli(),
		TotalMinutes: s.TotalMinutes,
	}
}
