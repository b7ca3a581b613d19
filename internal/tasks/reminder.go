package tasks

import (
	"fmt"

	"go.uber.org/zap"
)

// Speaker is the slice of the robot surface reminders need.
type Speaker interface {
	Say(text string) error
}

// Recorder receives the spoken reminder for the interaction log.
type Recorder interface {
	RecordSystem(text string)
}

// ReminderService turns "remind me at HH:MM to X" into a one-shot task
// that speaks when due.
type ReminderService struct {
	scheduler *Scheduler
	speaker   Speaker
	recorder  Recorder
	log       *zap.Logger
}

// NewReminderService wires reminders to the scheduler and speech output.
// recorder may be nil.
func NewReminderService(scheduler *Scheduler, speaker Speaker, recorder Recorder, log *zap.Logger) *ReminderService {
	return &ReminderService{
		scheduler: scheduler,
		speaker:   speaker,
		recorder:  recorder,
		log:       log.Named("reminders"),
	}
}

// Schedule registers a one-shot reminder and returns the confirmation
// sentence to speak back to the user.
func (r *ReminderService) Schedule(note, at string) (string, error) {
	normalized, err := NormalizeClock(at)
	if err != nil {
		return "", err
	}

	message := "Reminder: " + note
	_, err = r.scheduler.Add("reminder", note, normalized, true, func() {
		if err := r.speaker.Say(message); err != nil {
			r.log.Warn("failed to speak reminder", zap.Error(err))
			return
		}
		if r.recorder != nil {
			r.recorder.RecordSystem(message)
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Okay, I've set a reminder for %s to %s.", normalized, note), nil
}
