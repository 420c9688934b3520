package repository

import (
	"context"
	"errors"
	"time"

	"clinic-queue/internal/domain/entity"
	domainRepo "clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type queuePositionRepository struct{}

func NewQueuePositionRepository() domainRepo.QueuePositionRepository {
	return &queuePositionRepository{}
}

// Create appends a slot at the end of the doctor's queue: MAX(position)+1, or 1 for an empty queue.
// Callers must hold the doctor queue lock so two bookings cannot read the same MAX.
func (r *queuePositionRepository) Create(ctx context.Context, db *gorm.DB, appointmentID, doctorID uuid.UUID, emergency bool) (*entity.QueuePosition, error) {
	var maxPosition int
	err := db.WithContext(ctx).Model(&entity.QueuePosition{}).
		Select("COALESCE(MAX(position), 0)").
		Where("doctor_id = ?", doctorID).
		Scan(&maxPosition).Error
	if err != nil {
		return nil, err
	}

	priority := entity.PriorityRoutine
	if emergency {
		priority = entity.PriorityEmergency
	}

	position := &entity.QueuePosition{
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		Position:      maxPosition + 1,
		Priority:      priority,
		State:         entity.StatusBooked,
	}
	if err := db.WithContext(ctx).Create(position).Error; err != nil {
		return nil, err
	}
	return position, nil
}

func (r *queuePositionRepository) FindByAppointment(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (*entity.QueuePosition, error) {
	var position entity.QueuePosition
	err := db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

// UpdateState sets the queue state and, when given, the lastSeenAt/absentAt timestamps.
// Returns affected rows: 0 means no queue position exists for the appointment.
func (r *queuePositionRepository) UpdateState(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID, state entity.AppointmentStatus, lastSeenAt, absentAt *time.Time) (int64, error) {
	updates := map[string]interface{}{"state": state}
	if lastSeenAt != nil {
		updates["last_seen_at"] = *lastSeenAt
	}
	if absentAt != nil {
		updates["absent_at"] = *absentAt
	}

	result := db.WithContext(ctx).Model(&entity.QueuePosition{}).
		Where("appointment_id = ?", appointmentID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// FindNextEligible returns the doctor's non-emergency entry with the smallest position
// strictly greater than afterPosition, or nil when there is none.
func (r *queuePositionRepository) FindNextEligible(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, afterPosition int) (*entity.QueuePosition, error) {
	var position entity.QueuePosition
	err := db.WithContext(ctx).Model(&entity.QueuePosition{}).
		Select("queue_positions.*").
		Joins("JOIN appointments ON appointments.id = queue_positions.appointment_id").
		Where("queue_positions.doctor_id = ? AND queue_positions.position > ? AND appointments.emergency = ?",
			doctorID, afterPosition, false).
		Order("queue_positions.position ASC").
		Take(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

// SwapPositions exchanges the position values of a and b and records the counterpart on each.
// Must run inside a transaction; a and b are updated in place on success.
func (r *queuePositionRepository) SwapPositions(ctx context.Context, db *gorm.DB, a, b *entity.QueuePosition) error {
	aPos, bPos := a.Position, b.Position
	aID, bID := a.AppointmentID, b.AppointmentID

	err := db.WithContext(ctx).Model(&entity.QueuePosition{}).
		Where("appointment_id = ?", aID).
		Updates(map[string]interface{}{"position": bPos, "swapped_with": bID}).Error
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Model(&entity.QueuePosition{}).
		Where("appointment_id = ?", bID).
		Updates(map[string]interface{}{"position": aPos, "swapped_with": aID}).Error
	if err != nil {
		return err
	}

	a.Position, b.Position = bPos, aPos
	a.SwappedWith, b.SwappedWith = &bID, &aID
	return nil
}

// LockDoctorQueue locks every queue row of the doctor for the rest of the transaction.
func (r *queuePositionRepository) LockDoctorQueue(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) ([]entity.QueuePosition, error) {
	var positions []entity.QueuePosition
	err := forUpdate(db.WithContext(ctx)).
		Where("doctor_id = ?", doctorID).
		Order("position ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// FindByFilter loads the unsorted entries of a queue view.
// A doctor view only contains active states; a patient view contains the full history.
func (r *queuePositionRepository) FindByFilter(ctx context.Context, db *gorm.DB, filter entity.QueueFilter) ([]entity.QueuePosition, error) {
	var positions []entity.QueuePosition
	query := db.WithContext(ctx).Model(&entity.QueuePosition{}).Select("queue_positions.*")

	switch {
	case filter.DoctorID != nil:
		query = query.Where("queue_positions.doctor_id = ? AND queue_positions.state IN ?", *filter.DoctorID, entity.ActiveQueueStates)
	case filter.PatientID != nil:
		query = query.
			Joins("JOIN appointments ON appointments.id = queue_positions.appointment_id").
			Where("appointments.patient_id = ?", *filter.PatientID)
	}

	if err := query.Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
