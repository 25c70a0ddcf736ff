package utils

import (
	"github.com/google/uuid"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// GetMembership returns the user's membership in a company, or nil when the
// user is not a member.
func GetMembership(ctx *appcontext.Context, userID uuid.UUID, companyID uuid.UUID) *entity.CompanyMember {
	var member entity.CompanyMember
	if err := ctx.DB.Where("user_id = ? AND company_id = ?", userID, companyID).First(&member).Error; err != nil {
		return nil
	}
	return &member
}

func UserHasCompanyAccess(ctx *appcontext.Context, userID uuid.UUID, companyID uuid.UUID) bool {
	return GetMembership(ctx, userID, companyID) != nil
}

// UserHasRole reports whether the user holds one of the given roles in the
// company. Admins pass every role check.
func UserHasRole(ctx *appcontext.Context, userID uuid.UUID, companyID uuid.UUID, roles ...string) bool {
	member := GetMembership(ctx, userID, companyID)
	if member == nil {
		return false
	}
	if member.Role == entity.RoleAdmin {
		return true
	}
	for _, role := range roles {
		if member.Role == role {
			return true
		}
	}
	return false
}

func UserHasUploadAccess(ctx *appcontext.Context, userID uuid.UUID, uploadID uuid.UUID) bool {
	var upload entity.DataUpload
	if err := ctx.DB.First(&upload, "id = ?", uploadID).Error; err != nil {
		return false
	}
	return UserHasCompanyAccess(ctx, userID, upload.CompanyID)
}

func UserHasJobAccess(ctx *appcontext.Context, userID uuid.UUID, jobID uuid.UUID) bool {
	var job entity.ProcessingJob
	if err := ctx.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return false
	}
	return UserHasCompanyAccess(ctx, userID, job.CompanyID)
}
