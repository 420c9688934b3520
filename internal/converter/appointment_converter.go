package converter

import (
	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:           appointment.ID,
		PatientID:    appointment.PatientID,
		DoctorID:     appointment.DoctorID,
		Department:   appointment.Department,
		ScheduledAt:  appointment.ScheduledAt,
		Emergency:    appointment.Emergency,
		Status:       string(appointment.Status),
		LocationInfo: appointment.LocationInfo,
		Notes:        appointment.Notes,
		Queue:        QueuePositionToResponse(appointment.QueuePosition),
		CreatedAt:    appointment.CreatedAt,
		UpdatedAt:    appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

func QueuePositionToResponse(position *entity.QueuePosition) *dto.QueuePositionResponse {
	if position == nil {
		return nil
	}

	return &dto.QueuePositionResponse{
		Position:    position.Position,
		Priority:    position.Priority,
		State:       string(position.State),
		LastSeenAt:  position.LastSeenAt,
		AbsentAt:    position.AbsentAt,
		SwappedWith: position.SwappedWith,
	}
}
