package converter

import (
	"time"

	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/domain/ordering"
	"clinic-queue/internal/service"

	"github.com/google/uuid"
)

// QueueEntriesToResponse converts already ordered entries; rank starts at 1.
func QueueEntriesToResponse(entries []entity.QueueEntry, now time.Time) *dto.QueueResponse {
	responses := make([]dto.QueueEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = dto.QueueEntryResponse{
			Rank:          i + 1,
			AppointmentID: e.Position.AppointmentID,
			PatientID:     e.Appointment.PatientID,
			DoctorID:      e.Position.DoctorID,
			Department:    e.Appointment.Department,
			ScheduledAt:   e.Appointment.ScheduledAt,
			Emergency:     e.Appointment.Emergency,
			Position:      e.Position.Position,
			Priority:      e.Position.Priority,
			State:         string(e.Position.State),
			Late:          !e.Position.IsEmergency() && ordering.IsLate(e, now),
			LastSeenAt:    e.Position.LastSeenAt,
			SwappedWith:   e.Position.SwappedWith,
		}
	}

	return &dto.QueueResponse{
		Entries:     responses,
		Total:       len(responses),
		GeneratedAt: now,
	}
}

func SwapHistoryToResponse(appointmentID uuid.UUID, entries []entity.SwapHistoryEntry) *dto.SwapHistoryResponse {
	responses := make([]dto.SwapHistoryEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = dto.SwapHistoryEntryResponse{
			At:     e.At,
			From:   e.FromPos,
			To:     e.ToPos,
			With:   e.WithAppointmentID,
			Reason: e.Reason,
		}
	}

	return &dto.SwapHistoryResponse{
		AppointmentID: appointmentID,
		Entries:       responses,
		Total:         len(responses),
	}
}

func SwapResultToResponse(result *service.SwapResult) *dto.SwapResultResponse {
	if result == nil {
		return nil
	}

	return &dto.SwapResultResponse{
		Swapped:       result.Swapped,
		AppointmentID: result.AppointmentID,
		SwappedWith:   result.SwappedWith,
		FromPosition:  result.FromPosition,
		ToPosition:    result.ToPosition,
		MarkedAbsent:  result.MarkedAbsent,
	}
}

func ScanReportToResponse(report *service.ScanReport) *dto.ScanReportResponse {
	if report == nil {
		return nil
	}

	return &dto.ScanReportResponse{
		Threshold:    report.Threshold,
		Candidates:   report.Candidates,
		Swapped:      report.Swapped,
		MarkedAbsent: report.MarkedAbsent,
		Skipped:      report.Skipped,
		Failed:       report.Failed,
	}
}
