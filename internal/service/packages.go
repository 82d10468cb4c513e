package service

import "github.com/shestoi/coachcarter/internal/repository"

// PackageDisplayName человекочитаемое название пакета для клиента
func PackageDisplayName(packageType repository.PackageType, hours string) string {
	switch packageType {
	case repository.PackagePAYG:
		return "Pay As You Go — Single Lesson"
	case repository.PackageBulk:
		if hours == "" {
			return "Bulk Hour Package"
		}
		return hours + " Hour Package"
	case repository.PackagePassGuarantee:
		return "18-Week Pass Guarantee"
	default:
		return string(packageType)
	}
}

// InitialStatus статус нового бронирования по тарифу
func InitialStatus(packageType repository.PackageType) repository.Status {
	if packageType.RequiresVerification() {
		return repository.StatusPendingVerification
	}
	return repository.StatusPendingScheduling
}
