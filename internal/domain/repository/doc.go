// Package repository define las entidades persistidas del core de auth
// social y las interfaces de acceso a datos. Los drivers concretos viven
// en internal/store (pg, memory).
package repository
