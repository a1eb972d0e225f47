package meadow

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	stateful           bool
	stateTransitioning bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	started            bool
	finished           bool
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any

	// first fatal error reported through Commands.Fail
	fatal error
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
	}
	return app
}

// Run steps the app until it reaches its final state and returns the
// fatal error that stopped it, if any. Stateless apps run forever.
func (app *App) Run() error {
	for !app.finished {
		app.Step()
	}
	return app.fatal
}

// Step runs exactly one frame: the enter phase of the initial state on the
// first call, then the execute phase, then any pending state change.
func (app *App) Step() {
	if app.finished {
		return
	}

	if !app.started {
		app.started = true
		if app.stateful {
			app.Logger().Debugf("Running in stateful mode...")
			app.state = app.initialState
			app.callSystems(app.state, enter)
			app.applyTransition()
			if app.finished {
				return
			}
		} else {
			app.Logger().Debugf("Running in stateless mode...")
		}
	}

	app.callSystems(app.state, execute)
	app.applyTransition()
}

func (app *App) applyTransition() {
	if !app.stateful {
		return
	}
	// Enter systems may request further transitions; follow them until settled.
	for app.stateTransitioning {
		app.stateTransitioning = false
		app.executeChangeState(app.nextState)
	}
	if app.state == app.finalState {
		app.callSystems(app.state, exit)
		app.finished = true
	}
}

// State reports the state the app is currently in.
func (app *App) State() State {
	return app.state
}

// Finished reports whether the app has run the exit phase of its final state.
func (app *App) Finished() bool {
	return app.finished
}

// Err returns the fatal error recorded by Commands.Fail, if any.
func (app *App) Err() error {
	return app.fatal
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		// On execute, call stateless/always run systems first
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			if systemsInStage, ok := app.systems[stage.Name]; ok {
				if systemsInState, ok := systemsInStage[state]; ok {
					for _, system := range systemsInState[phase] {
						app.callSystem(system)
					}
				}
			}
		}
	}
}

func (app *App) changeState(newState State) {
	if app.state == app.finalState && app.started {
		return
	}
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	if newState == app.state {
		return
	}
	app.Logger().Debugf("State change: %v -> %v", app.state, newState)
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) fail(err error) {
	if err == nil {
		return
	}
	if app.fatal == nil {
		app.fatal = err
	}
	app.Logger().Errorf("%v", err)
	if app.stateful {
		app.changeState(app.finalState)
	} else {
		app.finished = true
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource looks up a resource by its pointer type, e.g. Resource[Config](app).
func Resource[T any](app *App) (*T, bool) {
	res, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	typed, ok := res.(*T)
	return typed, ok
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system %s: argument %d must be a pointer, got %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(), i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
