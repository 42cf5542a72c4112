// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package extproto

import "strings"

// Capability API methods an extension may name in a "call" envelope.
const (
	MethodCommandsRegister = "commands.register"
	MethodCommandsExecute  = "commands.execute"
	MethodCommandsList     = "commands.list"

	MethodEventsEmit = "events.emit"
	MethodEventsOn   = "events.on"

	MethodShowMessage   = "window.showMessage"
	MethodShowInputBox  = "window.showInputBox"
	MethodShowQuickPick = "window.showQuickPick"

	MethodOutputCreate     = "window.createOutputChannel"
	MethodOutputAppend     = "output.append"
	MethodOutputAppendLine = "output.appendLine"
	MethodOutputClear      = "output.clear"
	MethodOutputShow       = "output.show"
	MethodOutputHide       = "output.hide"
	MethodOutputDispose    = "output.dispose"

	MethodStatusBarCreate  = "window.createStatusBarItem"
	MethodStatusBarUpdate  = "statusBar.update"
	MethodStatusBarDispose = "statusBar.dispose"

	MethodConfigGet        = "workspace.getConfiguration"
	MethodConfigUpdate     = "workspace.updateConfiguration"
	MethodConfigWatch      = "workspace.onDidChangeConfiguration"
	MethodOpenTextDocument = "workspace.openTextDocument"
	MethodApplyEdit        = "workspace.applyEdit"

	MethodStorageGet    = "storage.get"
	MethodStorageSet    = "storage.set"
	MethodStorageDelete = "storage.delete"
	MethodStorageKeys   = "storage.keys"

	MethodStateGet    = "state.get"
	MethodStateUpdate = "state.update"

	MethodContainersList  = "containers.list"
	MethodContainersStart = "containers.start"
	MethodContainersStop  = "containers.stop"
	MethodContainersExec  = "containers.exec"

	MethodPodsList       = "orchestration.listPods"
	MethodApplyManifest  = "orchestration.applyManifest"
	MethodDeleteResource = "orchestration.deleteResource"

	MethodRunPlaybook      = "automation.runPlaybook"
	MethodValidatePlaybook = "automation.validatePlaybook"
	MethodEncryptSecret    = "automation.encryptSecret"
)

// Memento scopes accepted by state.get and state.update.
const (
	StateGlobal    = "global"
	StateWorkspace = "workspace"
)

const configurationEventPrefix = "configuration:"

// ConfigurationEvent names the event delivered when keys below section
// change.
func ConfigurationEvent(section string) string {
	return configurationEventPrefix + section
}

// ParseConfigurationEvent reverses ConfigurationEvent.
func ParseConfigurationEvent(name string) (section string, ok bool) {
	return strings.CutPrefix(name, configurationEventPrefix)
}
