package study

import (
	"fmt"
	"math"
	"time"
)

// Outcome describes what one Classify call changed
type Outcome struct {
	Verdict Verdict
	Phase   Phase
	Cursor  int

	AddedToReview bool
	// SyncFailed is set when the card flags could not be stored. Traversal continued.
	SyncFailed bool

	RemediationStarted bool
	RemediationFailed  bool
	RemediationErr     error
	AppendedCards      int

	Completed bool
	// CompletionSyncFailed is set when the completed mark could not be stored.
	CompletionSyncFailed bool
}

// NoticeKind selects how a notice is shown
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a short message for the learner
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Notices turns an outcome into the messages shown to the learner, in order
func (o Outcome) Notices() []Notice {
	var notices []Notice
	if o.SyncFailed {
		notices = append(notices, Notice{NoticeError, "İlerleme güncellenemedi"})
	}
	if o.AddedToReview {
		notices = append(notices, Notice{NoticeInfo, "Gözden geçirme listesine eklendi"})
	}
	if o.RemediationStarted {
		if o.RemediationFailed {
			notices = append(notices, Notice{NoticeError, "Açıklamalar oluşturulamadı"})
		} else {
			notices = append(notices, Notice{NoticeSuccess, "Açıklamalar oluşturuldu! Hadi bunları gözden geçirelim."})
		}
	}
	if o.Completed {
		notices = append(notices, Notice{NoticeSuccess, "🎉 Çalışma seansı tamamlandı!"})
		if o.CompletionSyncFailed {
			notices = append(notices, Notice{NoticeError, "Tamamlanma durumu kaydedilemedi"})
		}
	}
	return notices
}

// StudyTime formats the time between start and end in whole minutes
func StudyTime(start, end time.Time) string {
	minutes := int(math.Round(end.Sub(start).Minutes()))
	if minutes <= 0 {
		return "1 dakikadan az"
	}
	return fmt.Sprintf("%d dakika", minutes)
}
