package model

import "time"

// Window (ventanilla) is a physical or virtual service point that pulls
// and serves tickets.  The dispatch engine only ever references a
// window by ID; administration of windows is an independent CRUD
// surface.
//
// Fields:
//  ID        – primary key identifier.
//  Number    – display number shown to customers.
//  Label     – human-readable name of the desk.
//  Active    – whether the window currently accepts assignments.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Window struct {
    ID        uint64    // ventanillas.id
    Number    uint32    // ventanillas.numero
    Label     string    // ventanillas.etiqueta
    Active    bool      // ventanillas.activo
    CreatedAt time.Time // ventanillas.creado_el
    UpdatedAt time.Time // ventanillas.actualizado_el
}
