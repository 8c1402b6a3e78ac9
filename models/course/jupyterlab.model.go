package course

import "gorm.io/gorm"

// JupyterLabImage records the Docker image students' notebook servers run
// for this course.
type JupyterLabImage struct {
	gorm.Model
	CourseID  uint   `json:"course_id" gorm:"uniqueIndex;not null"`
	ImageName string `json:"image_name" gorm:"not null"`
}
