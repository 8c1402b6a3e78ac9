package controllers

import (
	"log"
	"os"

	"scw/database"
	"scw/middleware"
	courseModels "scw/models/course"
	"scw/utils"
	groupValidator "scw/validators/group"

	"github.com/gofiber/fiber/v2"
)

// CreateGroup adds a new group to the active course with the smallest free
// group number. Once the row is committed, every jupyter exercise of the
// course is copied into the fresh workspace in the background.
func CreateGroup(c *fiber.Ctx) error {
	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}
	if publishLocked(c, course) {
		return nil
	}

	number, err := courseModels.NextGroupNumber(db, course.ID)
	if err != nil {
		log.Printf("Error computing group number: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create group!", nil)
	}

	group := courseModels.Group{CourseID: course.ID, GroupNumber: number}
	if err := db.Create(&group).Error; err != nil {
		log.Printf("Error creating group: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create group!", nil)
	}

	utils.Provision.ScheduleGroupFanout(group.ID)

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Group created successfully!", fiber.Map{
		"id":           group.ID,
		"group_number": group.GroupNumber,
		"member_count": 0,
		"created_at":   group.CreatedAt,
	})
}

// DeleteGroup removes a group, its memberships and its workspace directory.
func DeleteGroup(c *fiber.Ctx) error {
	groupID, err := c.ParamsInt("group_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
	}

	db := database.Database.Db

	var group courseModels.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, group.CourseID).Error; err == nil {
		if publishLocked(c, &course) {
			return nil
		}
	}

	// Hard deletes: freed group numbers are reused, so the row must not
	// linger behind the (course, number) unique index.
	tx := db.Begin()
	if err := tx.Unscoped().Where("group_id = ?", group.ID).Delete(&courseModels.GroupMember{}).Error; err != nil {
		tx.Rollback()
		log.Printf("Error deleting group members: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete group!", nil)
	}
	if err := tx.Unscoped().Delete(&group).Error; err != nil {
		tx.Rollback()
		log.Printf("Error deleting group %d: %v", group.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete group!", nil)
	}
	tx.Commit()

	// Workspace cleanup after the delete commits. Submission archives are
	// kept for grading history.
	if err := os.RemoveAll(utils.GroupDir(group.ID)); err != nil {
		log.Printf("Error removing group directory: %v", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Group deleted successfully!", nil)
}

// ListGroups returns every group of the course with its members.
func ListGroups(c *fiber.Ctx) error {
	db := database.Database.Db

	course, err := ActiveCourse(db)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var groups []courseModels.Group
	if err := db.Where("course_id = ?", course.ID).Order("group_number asc").Find(&groups).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch groups!", nil)
	}

	type groupData struct {
		ID          uint         `json:"id"`
		GroupNumber int          `json:"group_number"`
		MemberCount int          `json:"member_count"`
		Members     []memberData `json:"members"`
	}
	groupsData := make([]groupData, 0, len(groups))
	for _, group := range groups {
		members := groupMembers(c, group.ID)
		groupsData = append(groupsData, groupData{
			ID:          group.ID,
			GroupNumber: group.GroupNumber,
			MemberCount: len(members),
			Members:     members,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Groups fetched successfully!", fiber.Map{
		"groups":      groupsData,
		"max_members": course.MaxMembers,
	})
}

type memberData struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func groupMembers(c *fiber.Ctx, groupID uint) []memberData {
	db := database.Database.Db

	members := []memberData{}
	rows, err := db.Table("group_members").
		Select("users.id, users.username, users.first_name, users.last_name").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ? AND group_members.deleted_at IS NULL", groupID).
		Rows()
	if err != nil {
		log.Printf("Error listing members for group %d: %v", groupID, err)
		return members
	}
	defer rows.Close()

	for rows.Next() {
		var id uint
		var username, firstName, lastName string
		if err := rows.Scan(&id, &username, &firstName, &lastName); err != nil {
			continue
		}
		members = append(members, memberData{
			UserID:   id,
			Username: username,
			FullName: firstName + " " + lastName,
		})
	}
	return members
}

// GetGroupMembers returns one group's member list.
func GetGroupMembers(c *fiber.Ctx) error {
	groupID, err := c.ParamsInt("group_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
	}

	db := database.Database.Db

	var group courseModels.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Members fetched successfully!", fiber.Map{
		"group_id": group.ID,
		"members":  groupMembers(c, group.ID),
	})
}

// AddGroupMember puts a student into a group on behalf of an instructor. A
// new member gets the group's workspace refreshed in the background.
func AddGroupMember(c *fiber.Ctx) error {
	groupID, err := c.ParamsInt("group_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
	}

	reqData, ok := c.Locals("validatedMember").(*groupValidator.MemberRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var group courseModels.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, group.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	tx := db.Begin()
	if err := group.AddMember(tx, &course, reqData.StudentID); err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}
	tx.Commit()

	utils.Provision.ScheduleGroupFanout(group.ID)

	count, _ := group.MemberCount(db)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Member added successfully!", fiber.Map{
		"group_id":     group.ID,
		"member_count": count,
	})
}

// RemoveGroupMember takes a student out of a group.
func RemoveGroupMember(c *fiber.Ctx) error {
	groupID, err := c.ParamsInt("group_id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid group id!", nil)
	}

	reqData, ok := c.Locals("validatedMember").(*groupValidator.MemberRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var group courseModels.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	if err := group.RemoveMember(db, reqData.StudentID); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	count, _ := group.MemberCount(db)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Member removed successfully!", fiber.Map{
		"group_id":     group.ID,
		"member_count": count,
	})
}

// JoinGroup lets an enrolled student join a group with free capacity.
func JoinGroup(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedJoin").(*groupValidator.JoinRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var group courseModels.Group
	if err := db.First(&group, reqData.GroupID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Group not found!", nil)
	}

	var course courseModels.Course
	if err := db.First(&course, group.CourseID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	tx := db.Begin()
	if err := group.AddMember(tx, &course, user.ID); err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}
	tx.Commit()

	utils.Provision.ScheduleGroupFanout(group.ID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Joined group successfully!", fiber.Map{
		"group_id":     group.ID,
		"group_number": group.GroupNumber,
	})
}
