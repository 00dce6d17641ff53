package model

import (
	"errors"
	"testing"
	"time"
)

func TestReminderValidate(t *testing.T) {
	morning := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)
	fired := morning.Add(time.Minute)
	cases := []struct {
		name    string
		rem     Reminder
		wantErr bool
		typeErr bool
	}{
		{name: "enabled hard", rem: Reminder{ID: "rem-1", TaskID: "task-read", TriggerTime: morning, Type: ReminderTypeHard, Enabled: true}},
		{name: "disabled soft", rem: Reminder{ID: "rem-1", TaskID: "task-read", TriggerTime: morning, Type: ReminderTypeSoft}},
		{name: "nagging already fired", rem: Reminder{ID: "rem-1", TaskID: "task-read", TriggerTime: morning, Type: ReminderTypeNagging, LastFiredAt: &fired, Enabled: true}},
		{name: "missing id", rem: Reminder{TaskID: "task-read", TriggerTime: morning, Type: ReminderTypeSoft}, wantErr: true},
		{name: "blank task", rem: Reminder{ID: "rem-1", TaskID: "  ", TriggerTime: morning, Type: ReminderTypeSoft}, wantErr: true},
		{name: "no trigger time", rem: Reminder{ID: "rem-1", TaskID: "task-read", Type: ReminderTypeSoft}, wantErr: true},
		{name: "lowercase type", rem: Reminder{ID: "rem-1", TaskID: "task-read", TriggerTime: morning, Type: "soft"}, wantErr: true, typeErr: true},
		{name: "empty type", rem: Reminder{ID: "rem-1", TaskID: "task-read", TriggerTime: morning}, wantErr: true, typeErr: true},
	}
	for _, tc := range cases {
		err := tc.rem.Validate()
		if tc.wantErr != (err != nil) {
			t.Fatalf("%s: wantErr=%v, got %v", tc.name, tc.wantErr, err)
		}
		if tc.typeErr && !errors.Is(err, ErrInvalidReminderType) {
			t.Fatalf("%s: expected ErrInvalidReminderType, got %v", tc.name, err)
		}
	}
}
