package service

import "github.com/vbonduro/areawizard/internal/domain"

// Option is one choice in a select field.
type Option struct {
	Value string
	Label string
}

var defaultProcesses = []Option{
	{Value: "inspeccion", Label: "Inspección"},
	{Value: "mantenimiento", Label: "Mantenimiento"},
	{Value: "control", Label: "Control"},
}

var processesByArea = map[string][]Option{
	domain.AreaHauling: defaultProcesses,
	domain.AreaSmallMining: {
		{Value: "extraccion", Label: "Extracción"},
		{Value: "procesamiento", Label: "Procesamiento"},
		{Value: "transporte", Label: "Transporte"},
	},
	domain.AreaBlastingService: {
		{Value: "perforacion", Label: "Perforación"},
		{Value: "carga", Label: "Carga"},
		{Value: "voladura", Label: "Voladura"},
	},
}

var defaultSubprocesses = []Option{
	{Value: "bla-bla", Label: "Bla bla"},
	{Value: "no-disponible", Label: "No disponible"},
}

var subprocessesByProcess = map[string][]Option{
	"inspeccion": {
		{Value: "bla-bla", Label: "Bla bla"},
		{Value: "revision", Label: "Revisión"},
		{Value: "verificacion", Label: "Verificación"},
	},
	"mantenimiento": {
		{Value: "preventivo", Label: "Preventivo"},
		{Value: "correctivo", Label: "Correctivo"},
		{Value: "predictivo", Label: "Predictivo"},
	},
	"control": {
		{Value: "calidad", Label: "Control de Calidad"},
		{Value: "seguridad", Label: "Control de Seguridad"},
		{Value: "no-disponible", Label: "No disponible"},
	},
}

// ProcessOptions lists the processes offered for an area. Dynamic areas and
// areas without their own list get the default set.
func ProcessOptions(areaID string) []Option {
	if opts, ok := processesByArea[areaID]; ok {
		return opts
	}
	return defaultProcesses
}

// SubprocessOptions lists the subprocesses offered for a process.
func SubprocessOptions(process string) []Option {
	if opts, ok := subprocessesByProcess[process]; ok {
		return opts
	}
	return defaultSubprocesses
}

func hasOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
