package provider

import (
	"context"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// Orders looks up orders through the order data tool.
type Orders struct {
	caller *Caller
	tool   string
}

func NewOrders(caller *Caller, tool string) *Orders {
	if tool == "" {
		tool = domain.DefaultOrderTool
	}
	return &Orders{caller: caller, tool: tool}
}

func (o *Orders) OrderByNumber(ctx context.Context, orderNo string) (domain.Record, error) {
	return o.caller.Call(ctx, o.tool, map[string]any{"orderNo": orderNo})
}

// Users looks up users through the user data tool.
type Users struct {
	caller *Caller
	tool   string
}

func NewUsers(caller *Caller, tool string) *Users {
	if tool == "" {
		tool = domain.DefaultUserTool
	}
	return &Users{caller: caller, tool: tool}
}

func (u *Users) UserByID(ctx context.Context, id int64) (domain.Record, error) {
	return u.caller.Call(ctx, u.tool, map[string]any{"id": id})
}

var (
	_ domain.OrderProvider = (*Orders)(nil)
	_ domain.UserProvider  = (*Users)(nil)
)
