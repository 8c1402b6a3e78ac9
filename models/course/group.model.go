package course

import (
	"errors"

	"gorm.io/gorm"
)

// Group is a student working group within the course. Its id keys the
// group's private workspace directory on disk.
type Group struct {
	gorm.Model
	CourseID    uint `json:"course_id" gorm:"uniqueIndex:idx_course_group_number;not null"`
	GroupNumber int  `json:"group_number" gorm:"uniqueIndex:idx_course_group_number;not null"`
}

// GroupMember links one student to one group.
type GroupMember struct {
	gorm.Model
	GroupID uint `json:"group_id" gorm:"uniqueIndex:idx_group_user;not null"`
	UserID  uint `json:"user_id" gorm:"uniqueIndex:idx_group_user;not null"`
}

// NextGroupNumber returns the smallest unused group number >= 1 for a course.
// Numbers freed by deleted groups are reused.
func NextGroupNumber(db *gorm.DB, courseID uint) (int, error) {
	var taken []int
	err := db.Model(&Group{}).
		Where("course_id = ?", courseID).
		Order("group_number asc").
		Pluck("group_number", &taken).Error
	if err != nil {
		return 0, err
	}

	number := 1
	for _, n := range taken {
		if n == number {
			number++
		}
	}
	return number, nil
}

// MemberCount returns the number of students in the group.
func (g *Group) MemberCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&GroupMember{}).Where("group_id = ?", g.ID).Count(&count).Error
	return count, err
}

// CanAddMember checks group capacity, prior membership and enrollment before
// a student may join. Returns a caller-facing reason when the add is refused.
func (g *Group) CanAddMember(db *gorm.DB, course *Course, userID uint) error {
	count, err := g.MemberCount(db)
	if err != nil {
		return err
	}
	if count >= int64(course.MaxMembers) {
		return errors.New("group is full")
	}

	var existing int64
	err = db.Model(&GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("groups.course_id = ? AND group_members.user_id = ?", course.ID, userID).
		Where("group_members.deleted_at IS NULL AND groups.deleted_at IS NULL").
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return errors.New("student is already in another group")
	}

	var enrolled int64
	err = db.Model(&Enrollment{}).
		Where("course_id = ? AND user_id = ?", course.ID, userID).
		Count(&enrolled).Error
	if err != nil {
		return err
	}
	if enrolled == 0 {
		return errors.New("student is not enrolled in the course")
	}
	return nil
}

// AddMember validates and inserts a membership row inside tx.
func (g *Group) AddMember(tx *gorm.DB, course *Course, userID uint) error {
	if err := g.CanAddMember(tx, course, userID); err != nil {
		return err
	}
	return tx.Create(&GroupMember{GroupID: g.ID, UserID: userID}).Error
}

// RemoveMember deletes a membership row, failing when the student is not in
// the group. Membership rows are removed for real, not soft-deleted, so the
// (group, user) unique index never blocks a rejoin.
func (g *Group) RemoveMember(tx *gorm.DB, userID uint) error {
	res := tx.Unscoped().Where("group_id = ? AND user_id = ?", g.ID, userID).Delete(&GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("student is not a member of this group")
	}
	return nil
}

// GroupForStudent returns the student's group in a course, or nil when the
// student has none.
func GroupForStudent(db *gorm.DB, courseID, userID uint) (*Group, error) {
	var group Group
	err := db.Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("groups.course_id = ? AND group_members.user_id = ?", courseID, userID).
		Where("group_members.deleted_at IS NULL").
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}
