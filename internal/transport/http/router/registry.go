package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

type Registry struct {
	mu        sync.RWMutex
	apiMods   []APIModule
	adminMods []AdminModule
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register 统一注册入口：根据类型断言分发到 API/Admin 列表
func (r *Registry) Register(mod any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := mod.(APIModule); ok {
		r.apiMods = append(r.apiMods, m)
	}
	if m, ok := mod.(AdminModule); ok {
		r.adminMods = append(r.adminMods, m)
	}
}

// MountAllAPI 在 /api/v1 上挂载所有已注册的 API 模块
func (r *Registry) MountAllAPI(api *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]APIModule(nil), r.apiMods...)
	r.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

// MountAllAdmin 在 /admin/v1 上挂载所有已注册的 Admin 模块
func (r *Registry) MountAllAdmin(admin *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]AdminModule(nil), r.adminMods...)
	r.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
