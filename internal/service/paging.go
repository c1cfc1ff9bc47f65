package service

import (
	"fmt"

	"ikiraha-api/internal/util"
	"ikiraha-api/pkg/apierror"
)

// checkPage rejects pages whose offset would exceed util.MaxOffset.
func checkPage(page int, limit int) error {
	if _, err := util.Offset(page, limit); err != nil {
		return apierror.BadRequest("Page out of range", fmt.Sprintf("page must be at most %d for limit %d", util.MaxOffset/limit+1, limit))
	}
	return nil
}
