package service

import "github.com/mmeshcher/automarket-system/internal/model"

// Проверки прав не зависят от транспортного слоя и тестируются без HTTP.

// canCreateListing разрешает создание объявлений продавцам и администраторам.
func canCreateListing(p model.Principal) bool {
	return p.Role == model.RoleSeller || p.IsAdmin()
}

// canManageListing разрешает операции с объявлением его владельцу и администраторам.
func canManageListing(p model.Principal, ownerID int64) bool {
	return p.UserID == ownerID || p.IsAdmin()
}

// canResolveDeposit разрешает одобрять и отклонять залог владельцу объявления и администраторам.
func canResolveDeposit(p model.Principal, carOwnerID int64) bool {
	return canManageListing(p, carOwnerID)
}

// canRefundDeposit разрешает возврат залога только администраторам.
func canRefundDeposit(p model.Principal) bool {
	return p.IsAdmin()
}

// canManageSale разрешает операции со сделкой её продавцу и администраторам.
func canManageSale(p model.Principal, sale *model.Sale) bool {
	return p.UserID == sale.SellerID || p.IsAdmin()
}

// canViewSale разрешает просмотр сделки её сторонам и администраторам.
func canViewSale(p model.Principal, sale *model.Sale) bool {
	return p.UserID == sale.BuyerID || canManageSale(p, sale)
}
