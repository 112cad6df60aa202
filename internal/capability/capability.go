// Package capability maps a device classification and an actor role to the
// set of till actions the pair may perform. The mapping is pure and resolved
// once per client session from the JWT claims; it is re-checked at the point
// where the durable write happens, so a spoofed client cannot bypass it by
// skipping the UI.
package capability

// Classe is the device classification a terminal presents at login.
type Classe string

const (
	// ClasseTerminal is a trusted staff terminal.
	ClasseTerminal Classe = "terminal"
	// ClasseTotem is a self-service kiosk. Totems never open or close a
	// session regardless of the actor's role.
	ClasseTotem Classe = "totem"
)

// Acao is a till action subject to gating.
type Acao string

const (
	Abrir     Acao = "abrir"
	Fechar    Acao = "fechar"
	Movimento Acao = "movimento"
	Sangria   Acao = "sangria"
	Reforco   Acao = "reforco"
	Despesa   Acao = "despesa"
	Consulta  Acao = "consulta"
)

// Dispositivo is the capability descriptor for the calling client.
type Dispositivo struct {
	ID     string
	Classe Classe
}

// Conjunto is the set of actions allowed for a device/role pair.
type Conjunto map[Acao]bool

// Permite reports whether the action is in the set.
func (c Conjunto) Permite(a Acao) bool { return c[a] }

// Para returns the allowed actions under the default policy:
//   - totem: record movements (payment events) and read, nothing else
//   - terminal: every action, for any recognized role
//   - unrecognized role: read only
func Para(classe Classe, papel string) Conjunto {
	if papel != "atendente" && papel != "administrador" {
		return Conjunto{Consulta: true}
	}
	switch classe {
	case ClasseTotem:
		return Conjunto{Movimento: true, Consulta: true}
	default:
		return Conjunto{
			Abrir: true, Fechar: true, Movimento: true,
			Sangria: true, Reforco: true, Despesa: true, Consulta: true,
		}
	}
}
